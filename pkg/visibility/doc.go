// Package visibility scopes shared content to an organization.
//
// Workouts, exercises and complexes are either global (no author) or
// authored by a user. Inside an organization only global content and
// content authored by that organization's coaches is visible:
//
//	filter, err := visibility.NewBuilder(classifier).BuildCoachFilter(ctx, orgID)
//	where, args, err := filter.SQL("created_by", 1)
//	rows, err := db.QueryContext(ctx, "SELECT id FROM workouts WHERE "+where, args...)
//
// An organization without coaches has no filter: BuildCoachFilter returns
// the lister's error and callers must treat the query as failed.
package visibility
