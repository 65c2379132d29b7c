package services

import (
	"testing"

	"yieldgate/internal/dto"
	"yieldgate/internal/events"
	"yieldgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelay captures published messages instead of touching NATS.
type fakeRelay struct {
	intents []*events.TransferIntentMessage
	acks    []*events.RouteExecutedMessage
}

func (r *fakeRelay) PublishIntent(msg *events.TransferIntentMessage) error {
	r.intents = append(r.intents, msg)
	return nil
}

func (r *fakeRelay) PublishRouteExecuted(msg *events.RouteExecutedMessage) error {
	r.acks = append(r.acks, msg)
	return nil
}

// newGateway builds a vault+gateway pair over one store, seeded with a flat
// 200 bps curve so every deposit locks a deterministic rate.
func newGateway(t *testing.T, chainID uint32) (*VaultService, *GatewayService, *fakeRelay, *LedgerStore) {
	t.Helper()
	store := newTestStore(t)
	params := defaultTestParams()
	params.RateAtKinkBps = 200
	params.RateAtMaxBps = 200
	params.MaxDeposits = "1000000000"
	seedVault(t, store, params)

	relay := &fakeRelay{}
	vault := NewVaultService(store)
	gateway := NewGatewayService(store, relay, nil, chainID)
	return vault, gateway, relay, store
}

func peerChain(chainID uint32) models.ChainConfig {
	return models.ChainConfig{
		ChainID:            chainID,
		Name:               "peer",
		Enabled:            true,
		Allowlisted:        true,
		MinTransfer:        "10",
		MaxTransfer:        "1000000",
		BucketCapacity:     "500",
		BucketRefillPerSec: "0",
	}
}

func TestTransferOutBurnsAndPublishes(t *testing.T) {
	vault, gateway, relay, _ := newGateway(t, 1)
	chain := peerChain(2)
	chain.BucketCapacity = "100000"
	seedPeer(t, gateway.store, chain)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	resp, err := gateway.TransferOut(alice, 2, bob, "400")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.MessageID)

	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "600", balance.Balance)

	require.Len(t, relay.intents, 1)
	msg := relay.intents[0]
	assert.Equal(t, uint32(1), msg.SourceChainID)
	assert.Equal(t, uint32(2), msg.DestChainID)
	assert.Equal(t, []string{bob}, msg.Recipients)
	assert.Equal(t, []string{"400"}, msg.Amounts)
	assert.Equal(t, "400", msg.TotalAmount)
	assert.Equal(t, uint32(200), msg.CarriedRateBps)

	pending, err := gateway.ListPendingIntents(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, resp.MessageID, pending[0].MessageID)
}

func TestTransferOutUnknownOrDisabledChain(t *testing.T) {
	vault, gateway, _, _ := newGateway(t, 1)
	disabled := peerChain(3)
	disabled.Enabled = false
	seedPeer(t, gateway.store, disabled)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = gateway.TransferOut(alice, 99, bob, "400")
	require.ErrorIs(t, err, ErrChainNotEnabled)

	_, err = gateway.TransferOut(alice, 3, bob, "400")
	require.ErrorIs(t, err, ErrChainNotEnabled)
}

func TestTransferOutBounds(t *testing.T) {
	vault, gateway, _, _ := newGateway(t, 1)
	chain := peerChain(2)
	chain.MinTransfer = "100"
	chain.MaxTransfer = "300"
	seedPeer(t, gateway.store, chain)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = gateway.TransferOut(alice, 2, bob, "50")
	require.ErrorIs(t, err, ErrAmountOutOfBounds)
	_, err = gateway.TransferOut(alice, 2, bob, "301")
	require.ErrorIs(t, err, ErrAmountOutOfBounds)

	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "1000", balance.Balance, "rejected transfers must not burn")
}

func TestTransferOutRateLimit(t *testing.T) {
	vault, gateway, relay, _ := newGateway(t, 1)
	seedPeer(t, gateway.store, peerChain(2)) // bucket capacity 500, no refill

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = gateway.TransferOut(alice, 2, bob, "600")
	require.ErrorIs(t, err, ErrRateLimitExceeded)

	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "1000", balance.Balance, "rate limited transfer must not burn")
	assert.Empty(t, relay.intents)

	// Consume 300, leaving 200; the next 300 no longer fits.
	_, err = gateway.TransferOut(alice, 2, bob, "300")
	require.NoError(t, err)

	available, capacity, err := gateway.GetBucketStatus(2)
	require.NoError(t, err)
	assert.Equal(t, "200", available)
	assert.Equal(t, "500", capacity)

	_, err = gateway.TransferOut(alice, 2, bob, "300")
	require.ErrorIs(t, err, ErrRateLimitExceeded)
}

func TestBatchValidationBeforeState(t *testing.T) {
	vault, gateway, _, store := newGateway(t, 1)
	seedPeer(t, gateway.store, peerChain(2))

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = gateway.CreateBatch(alice, 2, []string{bob}, []string{"100", "200"})
	require.ErrorIs(t, err, ErrLengthMismatch)

	_, err = gateway.CreateBatch(alice, 2, nil, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = gateway.CreateBatch(alice, 2, []string{bob, alice}, []string{"100", "0"})
	require.ErrorIs(t, err, ErrAmountOutOfBounds)

	var count int64
	require.NoError(t, store.DB().Model(&models.Batch{}).Count(&count).Error)
	assert.Zero(t, count, "rejected batches must not be staged")
}

func TestBatchExecutesExactlyOnce(t *testing.T) {
	vault, gateway, relay, _ := newGateway(t, 1)
	seedPeer(t, gateway.store, peerChain(2))

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	batch, err := gateway.CreateBatch(alice, 2, []string{bob, "0x00000000000000000000000000000000000000c3"}, []string{"100", "150"})
	require.NoError(t, err)
	assert.Equal(t, "250", batch.TotalAmount)
	assert.False(t, batch.Executed)

	// Staging moves no value.
	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "1000", balance.Balance)
	assert.Empty(t, relay.intents)

	resp, err := gateway.ExecuteBatch(alice, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, resp.BatchID)
	assert.NotEmpty(t, resp.MessageID)

	balance, err = vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "750", balance.Balance)
	require.Len(t, relay.intents, 1)
	assert.Equal(t, []string{"100", "150"}, relay.intents[0].Amounts)

	_, err = gateway.ExecuteBatch(alice, batch.ID)
	require.ErrorIs(t, err, ErrAlreadyExecuted)

	_, err = gateway.ExecuteBatch(bob, batch.ID)
	require.ErrorIs(t, err, ErrBatchNotFound)

	_, err = gateway.ExecuteBatch(alice, 12345)
	require.ErrorIs(t, err, ErrBatchNotFound)

	require.Len(t, relay.intents, 1, "a batch must emit exactly one intent")
}

func TestRoundTripCarriesRate(t *testing.T) {
	vaultA, gatewayA, relayA, _ := newGateway(t, 1)
	seedPeer(t, gatewayA.store, peerChain(2))

	vaultB, gatewayB, _, _ := newGateway(t, 2)
	seedPeer(t, gatewayB.store, peerChain(1))

	_, err := vaultA.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = gatewayA.TransferOut(alice, 2, bob, "400")
	require.NoError(t, err)
	require.Len(t, relayA.intents, 1)
	msg := relayA.intents[0]

	require.NoError(t, gatewayB.OnIntentDelivered(msg))

	balance, err := vaultB.GetBalance(bob)
	require.NoError(t, err)
	assert.Equal(t, "400", balance.Balance)
	assert.Equal(t, uint32(200), balance.LockedRateBps, "fresh accounts adopt the carried rate")

	// Redelivery is a no-op.
	err = gatewayB.OnIntentDelivered(msg)
	require.ErrorIs(t, err, ErrDuplicateMessage)
	balance, err = vaultB.GetBalance(bob)
	require.NoError(t, err)
	assert.Equal(t, "400", balance.Balance)
}

func TestInboundRejectsUnknownSource(t *testing.T) {
	_, gatewayB, _, _ := newGateway(t, 2)
	barred := peerChain(3)
	barred.Allowlisted = false
	seedPeer(t, gatewayB.store, barred)

	msg := &events.TransferIntentMessage{
		MessageID:     "11111111-1111-1111-1111-111111111111",
		SourceChainID: 77,
		DestChainID:   2,
		Sender:        alice,
		Recipients:    []string{bob},
		Amounts:       []string{"100"},
		TotalAmount:   "100",
	}
	err := gatewayB.OnIntentDelivered(msg)
	require.ErrorIs(t, err, ErrSourceNotAllowlisted)

	msg.MessageID = "22222222-2222-2222-2222-222222222222"
	msg.SourceChainID = 3
	err = gatewayB.OnIntentDelivered(msg)
	require.ErrorIs(t, err, ErrSourceNotAllowlisted)
}

func TestInboundRejectsMalformedIntent(t *testing.T) {
	_, gatewayB, _, _ := newGateway(t, 2)
	seedPeer(t, gatewayB.store, peerChain(1))

	msg := &events.TransferIntentMessage{
		MessageID:     "33333333-3333-3333-3333-333333333333",
		SourceChainID: 1,
		DestChainID:   2,
		Sender:        alice,
		Recipients:    []string{bob, alice},
		Amounts:       []string{"100"},
		TotalAmount:   "100",
	}
	err := gatewayB.OnIntentDelivered(msg)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestInboundPausedLeavesRedeliverable(t *testing.T) {
	vaultB, gatewayB, _, _ := newGateway(t, 2)
	seedPeer(t, gatewayB.store, peerChain(1))
	require.NoError(t, vaultB.SetPaused(true))

	msg := &events.TransferIntentMessage{
		MessageID:     "44444444-4444-4444-4444-444444444444",
		SourceChainID: 1,
		DestChainID:   2,
		Sender:        alice,
		Recipients:    []string{bob},
		Amounts:       []string{"100"},
		TotalAmount:   "100",
	}
	err := gatewayB.OnIntentDelivered(msg)
	require.ErrorIs(t, err, ErrPaused)

	// After unpausing, the same message still mints: the pause rejection
	// must not have consumed its idempotency slot.
	require.NoError(t, vaultB.SetPaused(false))
	require.NoError(t, gatewayB.OnIntentDelivered(msg))

	balance, err := vaultB.GetBalance(bob)
	require.NoError(t, err)
	assert.Equal(t, "100", balance.Balance)
}

func TestRouteLifecycle(t *testing.T) {
	vaultA, gatewayA, relayA, _ := newGateway(t, 1)
	seedPeer(t, gatewayA.store, peerChain(2))

	_, gatewayB, relayB, _ := newGateway(t, 2)
	seedPeer(t, gatewayB.store, peerChain(1))

	_, err := vaultA.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = gatewayA.ExecuteRoute(alice, "no-such-route", "100")
	require.ErrorIs(t, err, ErrRouteNotFound)

	route, err := gatewayA.SetRoute(&dto.SetRouteRequest{
		RouteID:     "staking-pool",
		TargetChain: 2,
		TargetRef:   "0x00000000000000000000000000000000000000d4",
		Payload:     `{"action":"stake"}`,
	})
	require.NoError(t, err)

	resp, err := gatewayA.ExecuteRoute(alice, "staking-pool", "100")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	require.Len(t, relayA.intents, 1)
	msg := relayA.intents[0]
	assert.Equal(t, route.TargetRef, msg.RouteTargetRef)
	assert.Equal(t, []string{route.TargetRef}, msg.Recipients)
	assert.Equal(t, `{"action":"stake"}`, msg.RoutePayload)

	require.NoError(t, gatewayB.OnIntentDelivered(msg))

	// The destination mints to the route target and acks the execution.
	require.Len(t, relayB.acks, 1)
	assert.Equal(t, msg.MessageID, relayB.acks[0].MessageID)
	assert.Equal(t, route.TargetRef, relayB.acks[0].TargetRef)
	assert.True(t, relayB.acks[0].Success)
}

func TestUpsertChainConfigCreatesBucket(t *testing.T) {
	_, gateway, _, store := newGateway(t, 1)

	enabled := true
	capacity := "900"
	chain, err := gateway.UpsertChainConfig(&dto.UpdateChainConfigRequest{
		ChainID:        5,
		Enabled:        &enabled,
		BucketCapacity: &capacity,
	})
	require.NoError(t, err)
	assert.True(t, chain.Enabled)
	assert.Equal(t, "900", chain.BucketCapacity)

	var bucket models.RateLimitBucket
	require.NoError(t, store.DB().First(&bucket, "chain_id = ?", uint32(5)).Error)
	assert.Equal(t, "900", bucket.Available, "new chains start with a full bucket")
}
