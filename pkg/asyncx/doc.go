// Package asyncx holds the small set of concurrency helpers the services use:
// fan-out with [All] and [AllSettled], bounded retries with [RetryWithBackoff],
// and deadlines with [WithTimeout]. Every helper takes a context.
//
// # Fan-out
//
// [All] runs functions concurrently and returns results in input order. It
// reports the first error but always waits for every goroutine.
//
//	results, err := asyncx.All(ctx,
//	    func(ctx context.Context) (error, error) { return nil, db.PingContext(ctx) },
//	    func(ctx context.Context) (error, error) { return nil, rdb.Ping(ctx).Err() },
//	)
//
// [AllSettled] never short-circuits. Cleanup paths use it when every step
// must be attempted regardless of the others:
//
//	for _, r := range asyncx.AllSettled(ctx, deleteIntent, deleteRedirect) {
//	    if !r.OK() { ... }
//	}
//
// # Retries
//
// [RetryWithBackoff] retries with exponentially growing delays. Wrap an error
// with [Permanent] to stop retrying immediately:
//
//	_, err := asyncx.RetryWithBackoff(ctx, 3, 200*time.Millisecond, func(ctx context.Context) (struct{}, error) {
//	    err := send(ctx)
//	    if isCallerError(err) {
//	        return struct{}{}, asyncx.Permanent(err)
//	    }
//	    return struct{}{}, err
//	})
package asyncx
