package txn

import (
	"context"
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"
)

// jitterRNG is the random source used for contention backoff jitter.
var jitterRNG = rand.New(rand.NewSource(time.Now().UnixNano()))

// randomSleep blocks for a small jittered duration to stagger contending transactions
// retrying the same lock, or returns early if ctx is done.
func randomSleep(ctx context.Context, unit time.Duration) {
	multiplier := jitterRNG.Intn(5)
	if multiplier == 0 {
		multiplier = 1
	}
	sleepFor := time.Duration(multiplier) * unit
	sleep(ctx, sleepFor)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	<-timer.Done()
}

// retryWithBackoff runs task with Fibonacci backoff, retrying up to maxRetries times
// after the first attempt, used to acquire a store's serializable lock under contention. It returns the last error once
// retries are exhausted.
func retryWithBackoff(ctx context.Context, maxRetries uint64, task func(ctx context.Context) error) error {
	b := retry.NewFibonacci(10 * time.Millisecond)
	return retry.Do(ctx, retry.WithMaxRetries(maxRetries, b), task)
}
