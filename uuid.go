package txn

import "github.com/flowforge/txncoord/store"

// Holder is the identity token a transaction presents to its store for lock ownership
// and read/write attribution. It is a type alias of store.Holder so the coordinator and
// every backend share one definition.
type Holder = store.Holder

// NilHolder is the zero-value Holder, never assigned to a live transaction.
var NilHolder Holder

func newHolder() Holder {
	return store.NewHolder()
}
