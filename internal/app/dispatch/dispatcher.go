// Package dispatch runs one interview session per accepted room.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PabloGalante/practerview-agent/internal/app/session"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

var (
	ErrRoomRejected = errors.New("room is not an interview room")
	ErrShuttingDown = errors.New("dispatcher is shutting down")
)

const closeTimeout = 10 * time.Second

// SessionStarter is satisfied by *session.Controller.
type SessionStarter interface {
	Start(ctx context.Context, room domain.Room) (*session.Session, error)
}

type Options struct {
	Connector domain.RoomConnector
	Sessions  SessionStarter
	// Accept filters room names; nil accepts every room.
	Accept  func(domain.RoomName) bool
	Metrics *observability.Metrics

	// Forget, when set, is called Retention after a room's job ends unless
	// the room is dispatched again meanwhile. It releases per-room state
	// such as the transcript.
	Forget    func(domain.RoomName)
	Retention time.Duration
}

type Dispatcher struct {
	connector domain.RoomConnector
	sessions  SessionStarter
	accept    func(domain.RoomName) bool
	metrics   *observability.Metrics
	forget    func(domain.RoomName)
	retention time.Duration

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	jobs     map[domain.RoomName]*job
	expiry   map[domain.RoomName]*time.Timer
	stopping bool
}

type job struct {
	room domain.RoomName
	done chan struct{}

	mu   sync.Mutex
	sess *session.Session
	err  error
}

func (j *job) session() *session.Session {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sess
}

func New(opts Options) *Dispatcher {
	accept := opts.Accept
	if accept == nil {
		accept = func(domain.RoomName) bool { return true }
	}
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		connector: opts.Connector,
		sessions:  opts.Sessions,
		accept:    accept,
		metrics:   opts.Metrics,
		forget:    opts.Forget,
		retention: opts.Retention,
		base:      base,
		cancel:    cancel,
		jobs:      make(map[domain.RoomName]*job),
		expiry:    make(map[domain.RoomName]*time.Timer),
	}
}

// Dispatch starts a job for room unless one is already running. It reports
// whether a new job was started. Jobs outlive ctx; only the request id is
// carried over for logging.
func (d *Dispatcher) Dispatch(ctx context.Context, room domain.RoomName) (bool, error) {
	_, started, err := d.dispatch(ctx, room)
	return started, err
}

// Run dispatches room and blocks until its job ends or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, room domain.RoomName) error {
	j, _, err := d.dispatch(ctx, room)
	if err != nil {
		return err
	}
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, room domain.RoomName) (*job, bool, error) {
	if !d.accept(room) {
		return nil, false, fmt.Errorf("%w: %s", ErrRoomRejected, room)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopping {
		return nil, false, ErrShuttingDown
	}
	if j, ok := d.jobs[room]; ok {
		return j, false, nil
	}

	if t, ok := d.expiry[room]; ok {
		t.Stop()
		delete(d.expiry, room)
	}

	j := &job{room: room, done: make(chan struct{})}
	d.jobs[room] = j
	d.wg.Add(1)

	jobCtx := observability.WithRoom(d.base, string(room))
	if reqID := observability.RequestIDFromContext(ctx); reqID != "" {
		jobCtx = observability.WithRequestID(jobCtx, reqID)
	}
	go d.runJob(jobCtx, j)
	return j, true, nil
}

func (d *Dispatcher) runJob(ctx context.Context, j *job) {
	log := observability.LoggerFromContext(ctx)
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.jobs, j.room)
		d.scheduleForget(j.room)
		d.mu.Unlock()
		close(j.done)
	}()

	err := d.serve(ctx, j)
	j.mu.Lock()
	j.err = err
	j.mu.Unlock()

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info("job finished")
	default:
		log.Error("job failed", "error", err)
	}
}

func (d *Dispatcher) serve(ctx context.Context, j *job) error {
	log := observability.LoggerFromContext(ctx)
	log.Info("connecting to room")

	room, err := d.connector.Connect(ctx, j.room)
	if err != nil {
		return fmt.Errorf("connect room: %w", err)
	}
	defer room.Disconnect()

	sess, err := d.sessions.Start(ctx, room)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.sess = sess
	j.mu.Unlock()
	if d.metrics != nil {
		d.metrics.SessionsActive.Inc()
		defer d.metrics.SessionsActive.Dec()
	}

	waitErr := sess.Wait(ctx)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		log.Warn("session close failed", "error", err)
	}
	return waitErr
}

// scheduleForget must be called with d.mu held.
func (d *Dispatcher) scheduleForget(room domain.RoomName) {
	if d.forget == nil {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d.retention, func() {
		d.mu.Lock()
		current := d.expiry[room] == t
		if current {
			delete(d.expiry, room)
		}
		d.mu.Unlock()
		if current {
			d.forget(room)
		}
	})
	d.expiry[room] = t
}

// Active lists the sessions that have started their conversation.
func (d *Dispatcher) Active() []domain.SessionInfo {
	d.mu.Lock()
	jobs := make([]*job, 0, len(d.jobs))
	for _, j := range d.jobs {
		jobs = append(jobs, j)
	}
	d.mu.Unlock()

	out := make([]domain.SessionInfo, 0, len(jobs))
	for _, j := range jobs {
		if s := j.session(); s != nil {
			out = append(out, s.Info())
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Room < out[k].Room })
	return out
}

// Session returns the running session for room, if any.
func (d *Dispatcher) Session(room domain.RoomName) (*session.Session, bool) {
	d.mu.Lock()
	j, ok := d.jobs[room]
	d.mu.Unlock()
	if !ok {
		return nil, false
	}
	s := j.session()
	return s, s != nil
}

// Info reports the status of the session running in room.
func (d *Dispatcher) Info(room domain.RoomName) (domain.SessionInfo, bool) {
	s, ok := d.Session(room)
	if !ok {
		return domain.SessionInfo{}, false
	}
	return s.Info(), true
}

// Shutdown cancels every job and waits for them to finish or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.stopping = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
