package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/platinummonkey/coachgate/pkg/auth"
	"github.com/platinummonkey/coachgate/pkg/orgs"
)

// BenchmarkDecide measures a granted decision against an in-memory store
func BenchmarkDecide(b *testing.B) {
	store := newFakeStore(member(coachC, orgO1, auth.RoleAdmin))
	engine := NewEngine(NewMatrix(), store)
	req := AccessRequest{
		UserID:          coachC,
		OrganizationID:  orgO1,
		Resource:        ResourceWorkout,
		RequiredActions: []Action{ActionRead, ActionUpdate},
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if d := engine.Decide(ctx, req); !d.Allowed {
			b.Fatalf("unexpected denial: %s", d.Cause)
		}
	}
}

// BenchmarkDecideCached measures decisions through the membership cache
func BenchmarkDecideCached(b *testing.B) {
	store := newFakeStore(member(userU1, orgO1, auth.RoleMember))
	cache := orgs.NewCachedResolver(store, 1024, time.Minute)
	engine := NewEngine(NewMatrix(), cache)
	req := AccessRequest{
		UserID:          userU1,
		OrganizationID:  orgO1,
		Resource:        ResourceSession,
		RequiredActions: []Action{ActionCreate},
	}
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if d := engine.Decide(ctx, req); !d.Allowed {
				b.Errorf("unexpected denial: %s", d.Cause)
				return
			}
		}
	})
}

// BenchmarkAllowedActions measures a bare matrix lookup
func BenchmarkAllowedActions(b *testing.B) {
	m := NewMatrix()
	for i := 0; i < b.N; i++ {
		_ = m.AllowedActions(auth.RoleMember, ResourcePersonalRecord)
	}
}
