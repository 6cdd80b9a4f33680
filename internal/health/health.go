package health

import (
	"context"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Status is the outcome of the most recent reachability probe for one upstream.
type Status struct {
	Name      string    `json:"name"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Store holds the latest probe outcome per upstream. Only probe results are
// kept here; request data is never stored.
type Store struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{statuses: make(map[string]Status)}
}

// Set records the latest status for an upstream.
func (s *Store) Set(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[st.Name] = st
}

// All returns the recorded statuses sorted by upstream name.
func (s *Store) All() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Status, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Target identifies one upstream endpoint to probe.
type Target struct {
	Name string
	URL  string
}

// Prober periodically checks upstream reachability and records the outcomes.
type Prober struct {
	scheduler *gocron.Scheduler
	client    *http.Client
	targets   []Target
	store     *Store
	interval  time.Duration
}

// NewProber creates a Prober over the given targets.
func NewProber(client *http.Client, targets []Target, interval time.Duration, store *Store) *Prober {
	return &Prober{
		scheduler: gocron.NewScheduler(time.UTC),
		client:    client,
		targets:   targets,
		store:     store,
		interval:  interval,
	}
}

// Start runs an immediate probe pass and schedules the periodic job.
func (p *Prober) Start() error {
	if len(p.targets) == 0 {
		log.Println("health: no probe targets configured; nothing to schedule")
		return nil
	}

	_, err := p.scheduler.Every(p.interval).StartImmediately().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.Probe(ctx)
	})
	if err != nil {
		return err
	}

	p.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future probes.
func (p *Prober) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}

// Probe runs one reachability pass over all targets and records the results.
func (p *Prober) Probe(ctx context.Context) {
	var wg sync.WaitGroup
	for _, target := range p.targets {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.store.Set(p.probeOne(ctx, target))
		}()
	}
	wg.Wait()
}

func (p *Prober) probeOne(ctx context.Context, target Target) Status {
	st := Status{Name: target.Name, CheckedAt: time.Now().UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("health: probe failed for %s: %v", target.Name, err)
		st.Error = err.Error()
		return st
	}
	resp.Body.Close()

	// Any HTTP response means the upstream is reachable.
	st.OK = true
	return st
}
