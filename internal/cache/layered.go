package cache

import (
	"context"
	"time"
)

// localCopyTTL bounds how long a value read from the remote tier is mirrored
// locally, since the remote TTL is not known on read.
const localCopyTTL = 5 * time.Minute

// Layered reads the remote tier first and mirrors hits into the local tier.
// Remote errors fall through to the local tier.
type Layered struct {
	remote Store
	local  Store
}

func NewLayered(remote, local Store) *Layered {
	return &Layered{remote: remote, local: local}
}

func (l *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if l.remote != nil {
		value, found, err := l.remote.Get(ctx, key)
		if err == nil && found {
			if l.local != nil {
				_ = l.local.Set(ctx, key, value, localCopyTTL)
			}
			return value, true, nil
		}
	}
	if l.local == nil {
		return nil, false, nil
	}
	return l.local.Get(ctx, key)
}

func (l *Layered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var remoteErr error
	if l.remote != nil {
		remoteErr = l.remote.Set(ctx, key, value, ttl)
	}
	if l.local != nil {
		localTTL := ttl
		if localTTL > localCopyTTL {
			localTTL = localCopyTTL
		}
		if err := l.local.Set(ctx, key, value, localTTL); err != nil {
			return err
		}
	}
	return remoteErr
}

func (l *Layered) Delete(ctx context.Context, key string) error {
	var remoteErr error
	if l.remote != nil {
		remoteErr = l.remote.Delete(ctx, key)
	}
	if l.local != nil {
		if err := l.local.Delete(ctx, key); err != nil {
			return err
		}
	}
	return remoteErr
}
