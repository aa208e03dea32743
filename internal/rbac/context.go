package rbac

import "context"

type teamKey struct{}

type teamScope struct {
	id  int64
	set bool
}

// WithTeam returns a context whose role and permission checks are scoped
// to teamID.
func WithTeam(ctx context.Context, teamID int64) context.Context {
	return context.WithValue(ctx, teamKey{}, teamScope{id: teamID, set: true})
}

// WithoutTeam returns a context scoped to global (team-less) assignments.
func WithoutTeam(ctx context.Context) context.Context {
	return context.WithValue(ctx, teamKey{}, teamScope{})
}

func TeamFromContext(ctx context.Context) (int64, bool) {
	scope, _ := ctx.Value(teamKey{}).(teamScope)
	return scope.id, scope.set
}

// TeamIDPtr is the scope as a nullable column value.
func TeamIDPtr(ctx context.Context) *int64 {
	id, ok := TeamFromContext(ctx)
	if !ok {
		return nil
	}
	return &id
}
