package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/flowforge/txncoord/store"
	"github.com/flowforge/txncoord/store/memory"
)

func Test_Run_HappyPathLazyNoKey(t *testing.T) {
	ctx := context.Background()
	commits := 0

	err := Run(ctx, Options{Logger: testLogger()}, func(ctx context.Context, tx *Transaction) error {
		tx.Stage(42, []Hook{NewHook("h", func(ctx context.Context, tx *Transaction) error {
			commits++
			return nil
		})}, nil)
		return nil
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if commits != 1 {
		t.Fatalf("commit hook ran %d times, want 1", commits)
	}
}

func Test_Run_EagerChildCommitsBeforeOuterExits(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	var outerStateAtInnerExit TransactionState

	err := Run(ctx, Options{Logger: testLogger(), CommitMode: Lazy}, func(ctx context.Context, outer *Transaction) error {
		outer.Stage("out", nil, nil)

		innerErr := Run(ctx, Options{
			Logger:     testLogger(),
			Store:      st,
			Key:        "k1",
			CommitMode: Eager,
		}, func(ctx context.Context, inner *Transaction) error {
			inner.Stage("x", nil, nil)
			return nil
		})
		if innerErr != nil {
			return innerErr
		}

		outerStateAtInnerExit = outer.State()

		exists, err := st.Exists(ctx, "k1")
		if err != nil {
			return err
		}
		if !exists {
			t.Fatal("inner transaction should have written k1 eagerly before outer exits")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outerStateAtInnerExit != Staged {
		t.Fatalf("outer state while still in its own scope = %v, want Staged", outerStateAtInnerExit)
	}
}

func Test_Run_ExceptionRollsBackNested(t *testing.T) {
	ctx := context.Background()
	stOut := memory.New()
	stIn := memory.New()
	boom := errors.New("boom")

	var innerRolledBack, outerRolledBack []string

	err := Run(ctx, Options{Logger: testLogger(), Store: stOut, Key: "kout", CommitMode: Lazy}, func(ctx context.Context, outer *Transaction) error {
		outer.Stage("out", nil, []Hook{NewHook("outer-rb", func(ctx context.Context, tx *Transaction) error {
			outerRolledBack = append(outerRolledBack, "outer")
			return nil
		})})

		innerErr := Run(ctx, Options{Logger: testLogger(), Store: stIn, Key: "kin", CommitMode: Lazy}, func(ctx context.Context, inner *Transaction) error {
			inner.Stage("in", nil, []Hook{NewHook("inner-rb", func(ctx context.Context, tx *Transaction) error {
				innerRolledBack = append(innerRolledBack, "inner")
				return nil
			})})
			return nil
		})
		if innerErr != nil {
			return innerErr
		}

		return boom
	})
	if err == nil {
		t.Fatal("expected error to propagate from Run")
	}
	if len(outerRolledBack) != 1 {
		t.Fatalf("outer rollback hook ran %d times, want 1", len(outerRolledBack))
	}
	if len(innerRolledBack) != 1 {
		t.Fatalf("inner rollback hook ran %d times, want 1", len(innerRolledBack))
	}
	if exists, _ := stOut.Exists(ctx, "kout"); exists {
		t.Fatal("kout should never have been written")
	}
	if exists, _ := stIn.Exists(ctx, "kin"); exists {
		t.Fatal("kin should never have been written")
	}
}

func Test_Run_OffCommitModeRollsBackCleanExit(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	rolledBack := false

	err := Run(ctx, Options{Logger: testLogger(), Store: st, Key: "k", CommitMode: Off}, func(ctx context.Context, tx *Transaction) error {
		tx.Stage("v", nil, []Hook{NewHook("rb", func(ctx context.Context, tx *Transaction) error {
			rolledBack = true
			return nil
		})})
		return nil
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !rolledBack {
		t.Fatal("OFF commit mode should roll back on a clean exit with no parent")
	}
	if exists, _ := st.Exists(ctx, "k"); exists {
		t.Fatal("OFF commit mode should never write to the store")
	}
}

func Test_Run_LazyWithParentDefersToParent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	committed := false

	err := Run(ctx, Options{Logger: testLogger(), CommitMode: Lazy}, func(ctx context.Context, outer *Transaction) error {
		return Run(ctx, Options{Logger: testLogger(), Store: st, Key: "k", CommitMode: Lazy}, func(ctx context.Context, inner *Transaction) error {
			inner.Stage("v", []Hook{NewHook("c", func(ctx context.Context, tx *Transaction) error {
				committed = true
				return nil
			})}, nil)
			return nil
		})
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !committed {
		t.Fatal("outer's own Lazy exit should have committed the adopted child")
	}
	if exists, _ := st.Exists(ctx, "k"); !exists {
		t.Fatal("k should have been written once the outer transaction committed")
	}
}

func Test_Go_RunsBodyAndReportsResult(t *testing.T) {
	ctx := context.Background()
	done := Go(ctx, Options{Logger: testLogger()}, func(ctx context.Context, tx *Transaction) error {
		tx.Stage("v", nil, nil)
		return nil
	})
	if err := <-done; err != nil {
		t.Fatalf("Go error: %v", err)
	}
}

func Test_ResolveScopeStore_ClearsNullMetadataSinkObservably(t *testing.T) {
	st := memory.New()
	if st.MetadataStorage().Kind() != store.MetadataStorageKindNull {
		t.Fatal("fresh memory store should report a null metadata sink")
	}

	resolved, err := resolveScopeStore(Options{Store: st, Key: "k"})
	if err != nil {
		t.Fatalf("resolveScopeStore error: %v", err)
	}
	if resolved.MetadataStorage().Kind() == store.MetadataStorageKindNull {
		t.Fatal("resolveScopeStore must not hand back a handle that still reports a null metadata sink")
	}
	if st.MetadataStorage().Kind() != store.MetadataStorageKindNull {
		t.Fatal("the original handle's sink must be unaffected by the copy-on-write clear")
	}
}

func Test_Go_UsesAttachedPool(t *testing.T) {
	ctx := context.Background()
	pool, pctx := NewPool(ctx, 2)

	ran := false
	done := Go(WithPool(pctx, pool), Options{Logger: testLogger()}, func(ctx context.Context, tx *Transaction) error {
		ran = true
		tx.Stage("v", nil, nil)
		return nil
	})
	if err := <-done; err != nil {
		t.Fatalf("Go error: %v", err)
	}
	if err := pool.Wait(); err != nil {
		t.Fatalf("pool.Wait error: %v", err)
	}
	if !ran {
		t.Fatal("body did not run")
	}
}
