// Package orgs manages organization membership for the coaching platform.
//
// # Membership
//
// A Membership binds one user to one organization with a role (member, admin
// or owner). The PostgresService is the Membership Resolver: FindMembership
// returns ErrMembershipNotFound when the user holds no role in the
// organization, which callers treat as an ordinary outcome.
//
//	store := orgs.NewPostgresService(db)
//	member, err := store.FindMembership(ctx, userID, orgID)
//	if errors.Is(err, orgs.ErrMembershipNotFound) {
//		// not a member
//	}
//
// # Coaches and athletes
//
// The Classifier derives coach and athlete facts from membership:
//
//	classifier := orgs.NewClassifier(resolver, store)
//	ok, err := classifier.IsCoach(ctx, userID, orgID)   // admin or owner
//	ids, err := classifier.CoachUserIDs(ctx, orgID)     // ErrNoCoachFound when empty
//
// Coach and athlete id lists are always read from the store.
//
// # Caching
//
// CachedResolver keeps (user, organization) lookups in an in-process expirable
// LRU and, optionally, in Redis through RedisCache. Answers may be stale for
// up to the configured TTL. Lookup errors are never cached. Use CachedService
// to have membership writes invalidate both tiers.
//
// # Schema
//
// RunMigrations creates the organizations, organization_members and
// user_sessions tables. The DDL runs on PostgreSQL and on SQLite, which the
// package tests use.
package orgs
