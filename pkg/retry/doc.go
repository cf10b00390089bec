// Package retry holds the throttle retry policy and the sleep primitives
// shared by the request throttler and the pacer.
//
// There is exactly one retry rule: the first throttling signal on a request
// earns one fixed cooldown, the second consecutive signal is fatal.
//
//	policy := retry.NewThrottlePolicy(15 * time.Minute)
//	for {
//		page, err := transport.Search(ctx, req)
//		if err == nil {
//			policy.OnSuccess()
//			return page, nil
//		}
//		wait, ok := policy.OnThrottled()
//		if !ok {
//			return nil, err
//		}
//		if err := sleeper.Sleep(ctx, wait); err != nil {
//			return nil, err
//		}
//	}
package retry
