package txn

import (
	"context"
	"testing"
)

func Test_Current_NoAmbientTransaction(t *testing.T) {
	if tx := Current(context.Background()); tx != nil {
		t.Fatalf("expected nil ambient transaction, got %v", tx)
	}
}

func Test_Push_InstallsAndRestoresPriorFrame(t *testing.T) {
	outer := &Transaction{key: "outer"}
	inner := &Transaction{key: "inner"}

	ctx := push(context.Background(), outer)
	if got := Current(ctx); got != outer {
		t.Fatalf("Current = %v, want outer", got)
	}

	nested := push(ctx, inner)
	if got := Current(nested); got != inner {
		t.Fatalf("Current(nested) = %v, want inner", got)
	}
	// The outer context is untouched: context.Context immutability means exiting the
	// nested scope (simply no longer using `nested`) automatically observes outer
	// again without any explicit pop.
	if got := Current(ctx); got != outer {
		t.Fatalf("Current(ctx) after nesting = %v, want outer unchanged", got)
	}
}

func Test_Push_IndependentBranches(t *testing.T) {
	base := context.Background()
	a := push(base, &Transaction{key: "a"})
	b := push(base, &Transaction{key: "b"})

	if Current(a).key != "a" {
		t.Fatal("branch a leaked branch b's transaction")
	}
	if Current(b).key != "b" {
		t.Fatal("branch b leaked branch a's transaction")
	}
}
