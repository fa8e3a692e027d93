package controller

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/and161185/wave-portal/internal/contract"
	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/model"
	"github.com/and161185/wave-portal/internal/wallet"
)

// Session is the wallet side the controller drives. *wallet.Session implements it.
type Session interface {
	DetectProvider() (wallet.Provider, bool)
	DiscoverAuthorizedAccount(ctx context.Context) (model.Account, bool)
	RequestConnection(ctx context.Context) (model.Account, error)
}

// Gateway is the contract side the controller drives. *contract.Gateway implements it.
type Gateway interface {
	TotalCount(ctx context.Context) (uint64, error)
	History(ctx context.Context) ([]model.WaveEntry, error)
	Submit(ctx context.Context, message string) (contract.Tx, error)
	Subscribe(ctx context.Context, onNewEntry func(model.WaveEntry)) (event.Subscription, error)
}

// GatewayFactory binds the contract to account's signer on provider p.
type GatewayFactory func(p wallet.Provider, account model.Account) (Gateway, error)

// Config wires a Controller.
type Config struct {
	Session    Session
	NewGateway GatewayFactory
	Log        *zap.Logger
	// OnChange, if set, is called from the event loop with every new state. It must not block.
	OnChange func(State)
}

// internal loop messages, never seen by Transition
type (
	subscribed struct {
		gen uint64
		sub event.Subscription
		err error
	}
	observed struct {
		gen   uint64
		entry model.WaveEntry
	}
	dropped struct {
		gen uint64
		err error
	}
)

func (subscribed) isEvent() {}
func (observed) isEvent()   {}
func (dropped) isEvent()    {}

// Controller runs Transition on a single event loop.
type Controller struct {
	session    Session
	newGateway GatewayFactory
	log        *zap.Logger
	onChange   func(State)

	events chan Event
	done   chan struct{}

	mu       sync.RWMutex
	snapshot State

	liveMu sync.Mutex
	closed bool
	live   []event.Subscription

	// owned by the loop
	ctx      context.Context
	state    State
	provider wallet.Provider
	gateways map[model.Account]Gateway
	sub      event.Subscription
	subGen   uint64
}

// New creates a Controller. Call Run to start it.
func New(cfg Config) *Controller {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		session:    cfg.Session,
		newGateway: cfg.NewGateway,
		log:        log,
		onChange:   cfg.OnChange,
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
		snapshot:   Initial(),
		gateways:   map[model.Account]Gateway{},
	}
}

// State returns the latest state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Dispatch queues ev for the loop. It is a no-op once the loop has exited.
func (c *Controller) Dispatch(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Run mounts the session and processes events until ctx is cancelled, then unmounts.
// The live subscription is released on every exit path. Run must be called once.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.ctx = ctx
	c.state = Initial()
	defer close(c.done)
	defer func() {
		cancel()
		c.release()
	}()

	p, present := c.session.DetectProvider()
	c.provider = p
	c.apply(Mounted{ProviderPresent: present})

	for {
		select {
		case <-ctx.Done():
			c.apply(Unmounted{})
			return nil
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch ev := ev.(type) {
	case subscribed:
		if ev.err != nil {
			if ev.gen == c.subGen {
				c.apply(SubscriptionFailed{Err: ev.err})
			}
			return
		}
		if ev.gen != c.subGen || !c.state.Subscribed {
			go ev.sub.Unsubscribe()
			return
		}
		c.sub = ev.sub
		go c.watch(ev.gen, ev.sub)
	case observed:
		if ev.gen == c.subGen {
			c.apply(WaveObserved{Entry: ev.entry})
		}
	case dropped:
		if ev.gen == c.subGen {
			c.sub = nil
			c.apply(SubscriptionFailed{Err: ev.err})
		}
	default:
		c.apply(ev)
	}
}

func (c *Controller) apply(ev Event) {
	next, effects := Transition(c.state, ev)
	c.state = next
	c.mu.Lock()
	c.snapshot = next
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(next)
	}
	for _, eff := range effects {
		c.execute(eff)
	}
}

func (c *Controller) post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *Controller) execute(eff Effect) {
	ctx := c.ctx
	switch eff := eff.(type) {
	case DiscoverAccount:
		go func() {
			acc, _ := c.session.DiscoverAuthorizedAccount(ctx)
			c.post(AccountDiscovered{Account: acc})
		}()

	case RequestConnection:
		go func() {
			acc, err := c.session.RequestConnection(ctx)
			if err != nil {
				c.post(ConnectFailed{Err: err})
				return
			}
			c.post(ConnectSucceeded{Account: acc})
		}()

	case FetchHistory:
		gw, err := c.gateway(c.state.Account)
		if err != nil {
			go c.post(HistoryFailed{Err: err})
			return
		}
		go func() {
			entries, err := gw.History(ctx)
			if err != nil {
				c.post(HistoryFailed{Err: err})
				return
			}
			c.post(HistoryLoaded{Entries: entries})
		}()

	case Subscribe:
		c.subGen++
		gen := c.subGen
		gw, err := c.gateway(c.state.Account)
		if err != nil {
			go c.post(subscribed{gen: gen, err: err})
			return
		}
		go func() {
			sub, err := gw.Subscribe(ctx, func(e model.WaveEntry) {
				c.post(observed{gen: gen, entry: e})
			})
			if err == nil && !c.track(sub) {
				sub.Unsubscribe()
				return
			}
			c.post(subscribed{gen: gen, sub: sub, err: err})
		}()

	case Unsubscribe:
		c.subGen++
		if c.sub == nil {
			return
		}
		sub := c.sub
		c.sub = nil
		if ctx.Err() != nil {
			sub.Unsubscribe()
			return
		}
		// The producer may be blocked posting to the loop; release it off-loop.
		go sub.Unsubscribe()

	case Submit:
		gw, err := c.gateway(eff.Account)
		if err != nil {
			go c.post(SubmitFailed{Err: err})
			return
		}
		go func() {
			tx, err := gw.Submit(ctx, eff.Message)
			if err != nil {
				c.post(SubmitFailed{Err: err})
				return
			}
			if err := tx.Wait(ctx); err != nil {
				c.post(SubmitFailed{Err: err})
				return
			}
			c.post(SubmitConfirmed{Tx: tx.Hash()})
		}()

	case LogTotalCount:
		gw, err := c.gateway(c.state.Account)
		if err != nil {
			return
		}
		go func() {
			n, err := gw.TotalCount(ctx)
			if err != nil {
				c.log.Warn("total count", zap.String("stage", eff.Stage), zap.Error(err))
				return
			}
			c.log.Info("total waves", zap.String("stage", eff.Stage), zap.Uint64("count", n))
		}()

	case LogFailure:
		c.log.Warn("operation failed", zap.String("op", eff.Op), zap.Error(eff.Err))
	}
}

func (c *Controller) watch(gen uint64, sub event.Subscription) {
	err, ok := <-sub.Err()
	if !ok || err == nil {
		return
	}
	c.post(dropped{gen: gen, err: err})
}

// gateway returns the cached binding for account, building it on first use.
func (c *Controller) gateway(account model.Account) (Gateway, error) {
	if c.provider == nil {
		return nil, errs.ErrNoProvider
	}
	if gw, ok := c.gateways[account]; ok {
		return gw, nil
	}
	gw, err := c.newGateway(c.provider, account)
	if err != nil {
		return nil, err
	}
	c.gateways[account] = gw
	return gw, nil
}

// track records sub for release at exit. It reports false once the loop has exited.
func (c *Controller) track(sub event.Subscription) bool {
	c.liveMu.Lock()
	defer c.liveMu.Unlock()
	if c.closed {
		return false
	}
	c.live = append(c.live, sub)
	return true
}

// release unsubscribes everything ever acquired, including handles still in flight to the loop.
func (c *Controller) release() {
	c.subGen++
	c.sub = nil
	c.liveMu.Lock()
	c.closed = true
	live := c.live
	c.live = nil
	c.liveMu.Unlock()
	for _, sub := range live {
		sub.Unsubscribe()
	}
}
