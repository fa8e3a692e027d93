package contract

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/model"
	"github.com/and161185/wave-portal/internal/wallet"
)

var (
	portal = common.HexToAddress(DefaultAddress)
	alice  = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
)

// fakeChain answers contract calls from an in-memory wave list.
type fakeChain struct {
	mu       sync.Mutex
	waves    []model.RawWave
	callErr  error
	logs     chan<- types.Log
	subErr   chan error
	receipts map[common.Hash]*types.Receipt
	lookups  int
}

func (c *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (c *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callErr != nil {
		return nil, c.callErr
	}
	m, err := parsed.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case methodTotal:
		return m.Outputs.Pack(big.NewInt(int64(len(c.waves))))
	case methodAll:
		return m.Outputs.Pack(c.waves)
	}
	return nil, errors.New("unexpected call " + m.Name)
}

func (c *fakeChain) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (c *fakeChain) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	c.mu.Lock()
	c.logs = ch
	c.subErr = make(chan error, 1)
	errc := c.subErr
	c.mu.Unlock()
	return event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case <-quit:
			return nil
		case err := <-errc:
			return err
		}
	}), nil
}

func (c *fakeChain) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if r, ok := c.receipts[h]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (c *fakeChain) emit(t *testing.T, from common.Address, ts int64, msg string) {
	t.Helper()
	ev := parsed.Events[EventNewWave]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(ts), msg)
	require.NoError(t, err)
	c.mu.Lock()
	ch := c.logs
	c.mu.Unlock()
	require.NotNil(t, ch, "not subscribed")
	ch <- types.Log{
		Address: portal,
		Topics:  []common.Hash{ev.ID, common.BytesToHash(from.Bytes())},
		Data:    data,
	}
}

type fakeProvider struct {
	chain   *fakeChain
	sent    []wallet.TxRequest
	sendErr error
}

func (p *fakeProvider) Accounts(context.Context) ([]common.Address, error)        { return nil, nil }
func (p *fakeProvider) RequestAccounts(context.Context) ([]common.Address, error) { return nil, nil }
func (p *fakeProvider) SendTransaction(_ context.Context, req wallet.TxRequest) (common.Hash, error) {
	p.sent = append(p.sent, req)
	if p.sendErr != nil {
		return common.Hash{}, p.sendErr
	}
	return common.BytesToHash([]byte{byte(len(p.sent))}), nil
}
func (p *fakeProvider) Chain() wallet.Chain {
	if p.chain == nil {
		return nil
	}
	return p.chain
}

func newGateway(t *testing.T, p *fakeProvider, acc model.Account) *Gateway {
	t.Helper()
	g, err := New(p, acc, portal, zaptest.NewLogger(t))
	require.NoError(t, err)
	return g
}

func TestNew_NoProvider(t *testing.T) {
	t.Parallel()
	_, err := New(nil, "", portal, nil)
	require.ErrorIs(t, err, errs.ErrNoProvider)

	_, err = New(&fakeProvider{}, "", portal, nil)
	require.ErrorIs(t, err, errs.ErrNoProvider)
}

func TestGateway_BindsAccount(t *testing.T) {
	t.Parallel()
	acc := model.AccountFromAddress(alice)
	g := newGateway(t, &fakeProvider{chain: &fakeChain{}}, acc)
	require.Equal(t, acc, g.Account())
	require.Equal(t, portal, g.Address())
}

func TestGateway_History(t *testing.T) {
	t.Parallel()
	ch := &fakeChain{waves: []model.RawWave{
		{Waver: alice, Message: "hi", Timestamp: big.NewInt(1700000000)},
		{Waver: bob, Message: "yo", Timestamp: big.NewInt(1700000100)},
	}}
	g := newGateway(t, &fakeProvider{chain: ch}, "")

	got, err := g.History(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.WaveEntry{
		{Author: model.AccountFromAddress(alice), SubmittedAt: time.Unix(1700000000, 0).UTC(), Message: "hi"},
		{Author: model.AccountFromAddress(bob), SubmittedAt: time.Unix(1700000100, 0).UTC(), Message: "yo"},
	}, got)

	n, err := g.TotalCount(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestGateway_HistoryEmpty(t *testing.T) {
	t.Parallel()
	g := newGateway(t, &fakeProvider{chain: &fakeChain{}}, "")
	got, err := g.History(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestGateway_ReadFailure(t *testing.T) {
	t.Parallel()
	g := newGateway(t, &fakeProvider{chain: &fakeChain{callErr: errors.New("rpc down")}}, "")

	_, err := g.History(context.Background())
	require.ErrorIs(t, err, errs.ErrChainCallFailed)
	_, err = g.TotalCount(context.Background())
	require.ErrorIs(t, err, errs.ErrChainCallFailed)
}

func TestGateway_Submit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, msg, want string
	}{
		{name: "message", msg: "gm", want: "gm"},
		{name: "empty becomes placeholder", msg: "", want: Placeholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &fakeProvider{chain: &fakeChain{}}
			g := newGateway(t, p, model.AccountFromAddress(alice))

			tx, err := g.Submit(context.Background(), tt.msg)
			require.NoError(t, err)
			require.NotEqual(t, common.Hash{}, tx.Hash())

			require.Len(t, p.sent, 1)
			req := p.sent[0]
			require.Equal(t, alice, req.From)
			require.Equal(t, portal, req.To)
			require.Equal(t, GasLimit, req.Gas)

			m := parsed.Methods[methodWave]
			require.Equal(t, m.ID, req.Data[:4])
			args, err := m.Inputs.Unpack(req.Data[4:])
			require.NoError(t, err)
			require.Equal(t, []any{tt.want}, args)
		})
	}
}

func TestGateway_SubmitErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		account model.Account
		sendErr error
		want    error
	}{
		{name: "no signer", account: "", want: errs.ErrNoAuthorization},
		{name: "user declined", account: model.AccountFromAddress(alice), sendErr: errs.ErrUserRejected, want: errs.ErrTransactionRejected},
		{name: "broadcast failure", account: model.AccountFromAddress(alice), sendErr: errors.New("nonce too low"), want: errs.ErrChainCallFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newGateway(t, &fakeProvider{chain: &fakeChain{}, sendErr: tt.sendErr}, tt.account)
			_, err := g.Submit(context.Background(), "x")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGateway_Subscribe(t *testing.T) {
	t.Parallel()
	ch := &fakeChain{}
	g := newGateway(t, &fakeProvider{chain: ch}, "")

	got := make(chan model.WaveEntry, 4)
	sub, err := g.Subscribe(context.Background(), func(e model.WaveEntry) { got <- e })
	require.NoError(t, err)

	ch.emit(t, bob, 1700000200, "live")
	select {
	case e := <-got:
		require.Equal(t, model.AccountFromAddress(bob), e.Author)
		require.Equal(t, "live", e.Message)
		require.Equal(t, time.Unix(1700000200, 0).UTC(), e.SubmittedAt)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	sub.Unsubscribe()
	_, open := <-sub.Err()
	require.False(t, open)
}

func TestGateway_SubscribeTransportError(t *testing.T) {
	t.Parallel()
	ch := &fakeChain{}
	g := newGateway(t, &fakeProvider{chain: ch}, "")

	sub, err := g.Subscribe(context.Background(), func(model.WaveEntry) {})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ch.mu.Lock()
	ch.subErr <- errors.New("ws closed")
	ch.mu.Unlock()

	select {
	case err := <-sub.Err():
		require.ErrorIs(t, err, errs.ErrChainCallFailed)
	case <-time.After(2 * time.Second):
		t.Fatal("error not propagated")
	}
}

func TestPendingTx_Wait(t *testing.T) {
	t.Parallel()
	h := common.HexToHash("0x01")

	t.Run("mined", func(t *testing.T) {
		t.Parallel()
		ch := &fakeChain{receipts: map[common.Hash]*types.Receipt{
			h: {Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7)},
		}}
		tx := newPendingTx(h, ch, zaptest.NewLogger(t))
		require.NoError(t, tx.Wait(context.Background()))
	})

	t.Run("reverted", func(t *testing.T) {
		t.Parallel()
		ch := &fakeChain{receipts: map[common.Hash]*types.Receipt{
			h: {Status: types.ReceiptStatusFailed},
		}}
		tx := newPendingTx(h, ch, zaptest.NewLogger(t))
		require.ErrorIs(t, tx.Wait(context.Background()), errs.ErrTransactionRejected)
	})

	t.Run("pending until deadline", func(t *testing.T) {
		t.Parallel()
		ch := &fakeChain{}
		tx := newPendingTx(h, ch, zaptest.NewLogger(t))
		tx.poll = 5 * time.Millisecond
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, tx.Wait(ctx), context.DeadlineExceeded)
		ch.mu.Lock()
		defer ch.mu.Unlock()
		require.Greater(t, ch.lookups, 1)
	})
}

func TestDecodeWaveCall(t *testing.T) {
	t.Parallel()
	data, err := parsed.Pack(methodWave, "gm")
	require.NoError(t, err)

	msg, ok := DecodeWaveCall(data)
	require.True(t, ok)
	require.Equal(t, "gm", msg)

	total, err := parsed.Pack(methodTotal)
	require.NoError(t, err)
	_, ok = DecodeWaveCall(total)
	require.False(t, ok)

	_, ok = DecodeWaveCall([]byte{1, 2})
	require.False(t, ok)
}
