package shared

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestProperty_CountsMatchLiveHandles drives random operation sequences over
// one ownership group and checks the counters against a model.
func TestProperty_CountsMatchLiveHandles(t *testing.T) {
	for seed := int64(1); seed <= 64; seed++ {
		rng := rand.New(rand.NewSource(seed))
		drops := 0

		var first Shared[answer]
		if seed%2 == 0 {
			first = Make(answer{value: int(seed), drops: &drops})
		} else {
			first = New(&answer{value: int(seed), drops: &drops})
		}
		cb := first.Block()
		strong := []Shared[answer]{first}
		var weak []Weak[answer]

		for step := 0; step < 200; step++ {
			switch rng.Intn(7) {
			case 0:
				if len(strong) > 0 {
					strong = append(strong, strong[rng.Intn(len(strong))].Clone())
				}
			case 1:
				if len(strong) > 0 {
					i := rng.Intn(len(strong))
					strong[i] = strong[i].Move()
				}
			case 2:
				if len(strong) > 0 {
					i := rng.Intn(len(strong))
					strong[i].Reset()
					strong = append(strong[:i], strong[i+1:]...)
				}
			case 3:
				if len(strong) > 0 {
					weak = append(weak, strong[rng.Intn(len(strong))].Weak())
				}
			case 4:
				if len(weak) > 0 {
					weak = append(weak, weak[rng.Intn(len(weak))].Clone())
				}
			case 5:
				if len(weak) > 0 {
					i := rng.Intn(len(weak))
					weak[i].Reset()
					weak = append(weak[:i], weak[i+1:]...)
				}
			case 6:
				if len(weak) > 0 {
					s := weak[rng.Intn(len(weak))].Lock()
					if len(strong) > 0 {
						require.True(t, s.Valid(), "seed %d step %d: lock of live object", seed, step)
						strong = append(strong, s)
					} else {
						require.False(t, s.Valid(), "seed %d step %d: lock of expired object", seed, step)
					}
				}
			}

			if len(strong) > 0 {
				require.Equal(t, len(strong), strong[0].UseCount(), "seed %d step %d", seed, step)
				require.Equal(t, 0, drops, "seed %d step %d: finalized while owned", seed, step)
				require.Equal(t, StateLive, cb.State())
			} else {
				require.Equal(t, 1, drops, "seed %d step %d: finalized exactly once", seed, step)
				for _, w := range weak {
					require.True(t, w.Expired())
				}
				if len(weak) == 0 {
					require.Equal(t, StateFreed, cb.State())
				} else {
					require.Equal(t, StateFinalized, cb.State())
					require.Equal(t, len(weak), cb.WeakCount())
				}
			}
			for _, w := range weak {
				require.Equal(t, len(strong), w.UseCount())
			}
			if cb.State() == StateFreed {
				break
			}
		}

		for i := range strong {
			strong[i].Reset()
		}
		for i := range weak {
			weak[i].Reset()
		}
		require.Equal(t, 1, drops, "seed %d", seed)
		require.Equal(t, StateFreed, cb.State(), "seed %d", seed)
	}
}
