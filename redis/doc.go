// Package redis wraps go-redis for the distributed engine and the redis
// ledger store.
//
// Client adds list-queue operations (Push, Pop) used as the task broker and
// binary/JSON key access used to share workloads and replies:
//
//	client, err := redis.New(redis.Config{Enabled: true, Addr: "localhost:6379"}, log)
//	err = client.Push(ctx, "automl:tasks", payload)
//	queue, raw, err := client.Pop(ctx, time.Second, "automl:tasks")
//
// TypedStore keeps JSON values of one type under a key prefix:
//
//	store := redis.NewTypedStore[ledger.Snapshot](client, "automl:ledger")
//	err := store.Save(ctx, searchID, &snapshot, 0)
package redis
