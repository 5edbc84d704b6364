package classify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Provider loads the model artifact on first use and caches it. After a
// load failure it waits out an exponential backoff before touching the
// filesystem again, so a worker hammering an absent artifact fails fast
// instead of stat-ing the path on every task.
type Provider struct {
	path      string
	retryBase time.Duration
	retryMax  time.Duration

	mu       sync.Mutex
	artifact *Artifact
	lastErr  error
	nextTry  time.Time
	backoff  time.Duration
}

// NewProvider builds a provider for the artifact at path with the given
// retry backoff bounds.
func NewProvider(path string, retryBase, retryMax time.Duration) *Provider {
	if retryBase <= 0 {
		retryBase = time.Second
	}
	if retryMax < retryBase {
		retryMax = retryBase
	}
	return &Provider{path: path, retryBase: retryBase, retryMax: retryMax}
}

// Artifact returns the cached artifact, loading it if needed. During a
// backoff window the previous load error is returned without retrying.
func (p *Provider) Artifact(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.artifact != nil {
		return p.artifact, nil
	}
	if p.lastErr != nil && time.Now().Before(p.nextTry) {
		return nil, fmt.Errorf("model load suppressed until %s: %w",
			p.nextTry.Format(time.RFC3339), p.lastErr)
	}

	artifact, err := LoadArtifact(p.path)
	if err != nil {
		p.lastErr = err
		if p.backoff == 0 {
			p.backoff = p.retryBase
		} else {
			p.backoff *= 2
			if p.backoff > p.retryMax {
				p.backoff = p.retryMax
			}
		}
		p.nextTry = time.Now().Add(p.backoff)
		return nil, err
	}

	p.artifact = artifact
	p.lastErr = nil
	p.backoff = 0
	return artifact, nil
}

// Invalidate drops the cached artifact so the next call reloads from disk.
// Training tools call this after writing a new artifact.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.artifact = nil
	p.lastErr = nil
	p.backoff = 0
	p.nextTry = time.Time{}
}
