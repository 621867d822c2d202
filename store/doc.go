// Package store provides the persistence-neutral core shared by the booking pipeline's repositories.
//
// It defines the explicit transaction handle that every repository call accepts, the sentinel errors
// that repositories return, read consistency preferences, and the dependency-free observability
// interfaces (Logger, ContextualLogger, MetricsCollector, TracingCollector) that concrete engines
// and background workers report through.
//
// A nil Handle means "use the ambient connection pool". A non-nil Handle is an open transaction
// obtained from the engine's InTransaction method; the call site decides which one is used:
//
//	err := repo.InTransaction(ctx, func(ctx context.Context, tx store.Handle) error {
//		order, err := repo.FindReservationOrder(ctx, tx, reservationID)
//		if err != nil {
//			return err
//		}
//		// ... decide ...
//		return repo.SaveReservationOrder(ctx, tx, order)
//	})
package store
