package services

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"quickchat/repositories"
)

// UnseenAggregator computes, per counterpart, how many messages addressed
// to a user are still unseen. Results are point-in-time snapshots; callers
// re-invoke after a read-state change.
type UnseenAggregator struct {
	messages    repositories.IMessageRepository
	users       repositories.IUserRepository
	parallelism int
}

func NewUnseenAggregator(messages repositories.IMessageRepository,
	users repositories.IUserRepository, parallelism int) *UnseenAggregator {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &UnseenAggregator{messages: messages, users: users, parallelism: parallelism}
}

// UnseenCounts fans the per-counterpart counts out concurrently, capped so
// a large user directory cannot explode into unbounded goroutines. Zero
// counts are omitted from the result.
func (a *UnseenAggregator) UnseenCounts(ctx context.Context, forUser string) (map[string]int, error) {
	others, err := a.users.ListOthers(forUser)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	counts := make(map[string]int)

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(a.parallelism)
	for _, other := range others {
		group.Go(func() error {
			count, err := a.messages.CountUnseenFrom(other.ID, forUser)
			if err != nil {
				return err
			}
			if count > 0 {
				mu.Lock()
				counts[other.ID] = count
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
