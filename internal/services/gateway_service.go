package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"yieldgate/internal/dto"
	"yieldgate/internal/events"
	"yieldgate/internal/interfaces"
	"yieldgate/internal/ledger"
	"yieldgate/internal/metrics"
	"yieldgate/internal/models"
	"yieldgate/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GatewayService owns the cross-ledger transfer protocol for this instance:
// burn-then-mint intents, token-bucket rate limiting, multi-recipient
// batches and composable routes on the send side; idempotent minting on the
// receive side. The burn, the bucket consumption and the intent record
// commit in one transaction; the relay publish happens after commit, so a
// failed publish leaves a reconcilable pending intent rather than a
// phantom mint.
type GatewayService struct {
	store   *LedgerStore
	relay   interfaces.IntentRelay
	push    *PushService
	chainID uint32
	log     *logrus.Entry
}

// NewGatewayService creates a GatewayService for the given local chain id.
// push may be nil.
func NewGatewayService(store *LedgerStore, relay interfaces.IntentRelay, push *PushService, chainID uint32) *GatewayService {
	return &GatewayService{
		store:   store,
		relay:   relay,
		push:    push,
		chainID: chainID,
		log:     logrus.WithField("service", "gateway"),
	}
}

// TransferOut burns amount from sender and emits a single-recipient intent
// towards destChain.
func (s *GatewayService) TransferOut(sender string, destChain uint32, recipient, amountStr string) (*dto.TransferResponse, error) {
	amount, err := utils.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	intent, err := s.sendIntent(sender, destChain, []string{recipient}, []*big.Int{amount}, amount, "", "")
	if err != nil {
		return nil, err
	}
	return &dto.TransferResponse{Success: true, MessageID: intent.MessageID}, nil
}

// CreateBatch stages a multi-recipient transfer. Validation happens before
// any state change.
func (s *GatewayService) CreateBatch(sender string, destChain uint32, recipients, amountStrs []string) (*models.Batch, error) {
	if len(recipients) != len(amountStrs) {
		return nil, fmt.Errorf("%d recipients, %d amounts: %w", len(recipients), len(amountStrs), ErrLengthMismatch)
	}
	if len(recipients) == 0 {
		return nil, ErrEmptyBatch
	}
	total := new(big.Int)
	for i, a := range amountStrs {
		amount, err := utils.ParseAmount(a)
		if err != nil {
			return nil, err
		}
		if amount.Sign() == 0 {
			return nil, fmt.Errorf("zero amount for recipient %s: %w", recipients[i], ErrAmountOutOfBounds)
		}
		total.Add(total, amount)
	}

	recipientsJSON, err := json.Marshal(recipients)
	if err != nil {
		return nil, err
	}
	amountsJSON, err := json.Marshal(amountStrs)
	if err != nil {
		return nil, err
	}

	batch := &models.Batch{
		DestChainID: destChain,
		Sender:      sender,
		Recipients:  string(recipientsJSON),
		Amounts:     string(amountsJSON),
		TotalAmount: utils.FormatAmount(total),
	}
	err = s.store.WithTx(func(tx *gorm.DB) error {
		return tx.Create(batch).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"batchId":    batch.ID,
		"destChain":  destChain,
		"recipients": len(recipients),
		"total":      batch.TotalAmount,
	}).Info("batch staged")
	s.pushEvent("batch_created", batch)
	return batch, nil
}

// ExecuteBatch burns the batch total from its sender and emits one intent
// carrying the whole recipient list. A batch executes exactly once; the
// executed flag is flipped inside the same transaction as the burn, before
// the relay publish.
func (s *GatewayService) ExecuteBatch(sender string, batchID uint64) (*dto.TransferResponse, error) {
	var batch models.Batch
	var msg *events.TransferIntentMessage
	err := s.store.WithTx(func(tx *gorm.DB) error {
		if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("batch %d: %w", batchID, ErrBatchNotFound)
			}
			return err
		}
		if batch.Sender != sender {
			return fmt.Errorf("batch %d belongs to %s: %w", batchID, batch.Sender, ErrBatchNotFound)
		}
		if batch.Executed {
			return fmt.Errorf("batch %d: %w", batchID, ErrAlreadyExecuted)
		}

		var recipients, amountStrs []string
		if err := json.Unmarshal([]byte(batch.Recipients), &recipients); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(batch.Amounts), &amountStrs); err != nil {
			return err
		}
		amounts := make([]*big.Int, len(amountStrs))
		for i, a := range amountStrs {
			amounts[i] = utils.MustParseAmount(a)
		}
		total := utils.MustParseAmount(batch.TotalAmount)

		intent, err := s.sendIntentTx(tx, sender, batch.DestChainID, recipients, amounts, total, "", "")
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		batch.Executed = true
		batch.ExecutedAt = &now
		batch.MessageID = intent.MessageID
		if err := tx.Save(&batch).Error; err != nil {
			return err
		}
		msg = intentToMessage(intent)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(msg)
	s.pushEvent("batch_executed", &batch)
	return &dto.TransferResponse{Success: true, MessageID: batch.MessageID, BatchID: batch.ID}, nil
}

// SetRoute registers or updates a composable route. Caller authorization
// happened upstream (admin surface).
func (s *GatewayService) SetRoute(req *dto.SetRouteRequest) (*models.TransferRoute, error) {
	route := &models.TransferRoute{
		RouteID:     req.RouteID,
		TargetChain: req.TargetChain,
		TargetRef:   req.TargetRef,
		Payload:     req.Payload,
	}
	err := s.store.WithTx(func(tx *gorm.DB) error {
		var existing models.TransferRoute
		err := tx.First(&existing, "route_id = ?", req.RouteID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(route).Error
		}
		if err != nil {
			return err
		}
		existing.TargetChain = req.TargetChain
		existing.TargetRef = req.TargetRef
		existing.Payload = req.Payload
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		route = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"routeId":     route.RouteID,
		"targetChain": route.TargetChain,
	}).Info("route registered")
	return route, nil
}

// ExecuteRoute burns amount from sender and ships it through a registered
// route; the destination mints to the route target and hands the payload to
// its external executor after the mint.
func (s *GatewayService) ExecuteRoute(sender, routeID, amountStr string) (*dto.TransferResponse, error) {
	amount, err := utils.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}

	var route models.TransferRoute
	if err := s.store.DB().First(&route, "route_id = ?", routeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("route %s: %w", routeID, ErrRouteNotFound)
		}
		return nil, err
	}

	intent, err := s.sendIntent(sender, route.TargetChain, []string{route.TargetRef}, []*big.Int{amount}, amount, route.TargetRef, route.Payload)
	if err != nil {
		return nil, err
	}
	return &dto.TransferResponse{Success: true, MessageID: intent.MessageID}, nil
}

// OnIntentDelivered mints an inbound intent exactly once. Duplicate
// deliveries return ErrDuplicateMessage, which callers treat as a no-op
// acknowledgement. Any failure leaves state untouched, so the relay can
// redeliver.
func (s *GatewayService) OnIntentDelivered(msg *events.TransferIntentMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrLengthMismatch)
	}

	now := time.Now().UTC()
	err := s.store.WithTx(func(tx *gorm.DB) error {
		vault, err := loadVaultState(tx)
		if err != nil {
			return err
		}
		if vault.Paused {
			return ErrPaused
		}

		var processed models.ProcessedMessage
		err = tx.First(&processed, "message_id = ?", msg.MessageID).Error
		if err == nil {
			return ErrDuplicateMessage
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var source models.ChainConfig
		if err := tx.First(&source, "chain_id = ?", msg.SourceChainID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("chain %d: %w", msg.SourceChainID, ErrSourceNotAllowlisted)
			}
			return err
		}
		if !source.Allowlisted {
			return fmt.Errorf("chain %d: %w", msg.SourceChainID, ErrSourceNotAllowlisted)
		}

		ledgerRow, state, err := loadLedgerState(tx)
		if err != nil {
			return err
		}
		for i, recipient := range msg.Recipients {
			amount, err := utils.ParseAmount(msg.Amounts[i])
			if err != nil {
				return err
			}
			account, entry, err := loadAccountEntry(tx, recipient, now)
			if err != nil {
				return err
			}
			// Fresh accounts adopt the carried rate; existing locked rates
			// are kept.
			if err := ledger.Mint(state, entry, amount, msg.CarriedRateBps); err != nil {
				return err
			}
			if err := saveAccountEntry(tx, account, entry); err != nil {
				return err
			}
		}
		if err := saveLedgerState(tx, ledgerRow, state); err != nil {
			return err
		}

		record := messageToIntent(msg)
		record.Status = models.IntentStatusDelivered
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProcessedMessage{
			MessageID:     msg.MessageID,
			SourceChainID: msg.SourceChainID,
			ProcessedAt:   now,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateMessage) {
			metrics.DuplicateMessagesTotal.Inc()
		}
		return err
	}

	metrics.TransfersInTotal.WithLabelValues(strconv.FormatUint(uint64(msg.SourceChainID), 10)).Inc()
	s.log.WithFields(logrus.Fields{
		"messageId":   msg.MessageID,
		"sourceChain": msg.SourceChainID,
		"recipients":  len(msg.Recipients),
		"total":       msg.TotalAmount,
	}).Info("intent minted")
	s.pushEvent("intent_delivered", msg)

	if msg.RouteTargetRef != "" && s.relay != nil {
		ack := &events.RouteExecutedMessage{
			MessageID:      msg.MessageID,
			DestChainID:    s.chainID,
			TargetRef:      msg.RouteTargetRef,
			Success:        true,
			ExecutedAtUnix: now.Unix(),
		}
		if err := s.relay.PublishRouteExecuted(ack); err != nil {
			s.log.WithError(err).Warn("route ack publish failed")
		}
	}
	return nil
}

// ListPendingIntents returns this instance's in-flight (burned, not yet
// known-delivered) outbound intents.
func (s *GatewayService) ListPendingIntents(limit int) ([]*models.TransferIntent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var intents []*models.TransferIntent
	err := s.store.DB().
		Where("status = ? AND source_chain_id = ?", models.IntentStatusPending, s.chainID).
		Order("created_at ASC").
		Limit(limit).
		Find(&intents).Error
	return intents, err
}

// GetBatch returns a staged or executed batch.
func (s *GatewayService) GetBatch(batchID uint64) (*models.Batch, error) {
	var batch models.Batch
	if err := s.store.DB().First(&batch, "id = ?", batchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("batch %d: %w", batchID, ErrBatchNotFound)
		}
		return nil, err
	}
	return &batch, nil
}

// GetBucketStatus returns the rate-limit bucket for a counterparty chain,
// with the refill projected to now.
func (s *GatewayService) GetBucketStatus(chainID uint32) (available, capacity string, err error) {
	tx := s.store.DB()
	var chain models.ChainConfig
	if err := tx.First(&chain, "chain_id = ?", chainID).Error; err != nil {
		return "", "", err
	}
	var bucket models.RateLimitBucket
	if err := tx.First(&bucket, "chain_id = ?", chainID).Error; err != nil {
		return "", "", err
	}
	avail := refillBucket(&bucket, &chain, time.Now().UTC())
	return utils.FormatAmount(avail), chain.BucketCapacity, nil
}

// UpsertChainConfig applies an admin mutation to a counterparty chain,
// creating it (with a full bucket) when new.
func (s *GatewayService) UpsertChainConfig(req *dto.UpdateChainConfigRequest) (*models.ChainConfig, error) {
	var chain models.ChainConfig
	err := s.store.WithTx(func(tx *gorm.DB) error {
		err := tx.First(&chain, "chain_id = ?", req.ChainID).Error
		fresh := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !fresh {
			return err
		}
		if fresh {
			chain = models.ChainConfig{ChainID: req.ChainID, MinTransfer: "0", MaxTransfer: "0", BucketCapacity: "0", BucketRefillPerSec: "0"}
		}

		if req.Name != nil {
			chain.Name = *req.Name
		}
		if req.Enabled != nil {
			chain.Enabled = *req.Enabled
		}
		if req.Allowlisted != nil {
			chain.Allowlisted = *req.Allowlisted
		}
		for _, f := range []struct {
			src *string
			dst *string
		}{
			{req.MinTransfer, &chain.MinTransfer},
			{req.MaxTransfer, &chain.MaxTransfer},
			{req.BucketCapacity, &chain.BucketCapacity},
			{req.BucketRefillPerSec, &chain.BucketRefillPerSec},
		} {
			if f.src == nil {
				continue
			}
			if _, err := utils.ParseAmount(*f.src); err != nil {
				return err
			}
			*f.dst = *f.src
		}

		if err := tx.Save(&chain).Error; err != nil {
			return err
		}
		if fresh {
			return tx.Create(&models.RateLimitBucket{
				ChainID:      chain.ChainID,
				Available:    chain.BucketCapacity,
				LastRefillAt: time.Now().UTC(),
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"chainId": chain.ChainID,
		"enabled": chain.Enabled,
	}).Info("chain config updated")
	return &chain, nil
}

// ---- send path ----

// sendIntent runs sendIntentTx in its own transaction and publishes the
// committed intent.
func (s *GatewayService) sendIntent(sender string, destChain uint32, recipients []string, amounts []*big.Int, total *big.Int, routeRef, routePayload string) (*models.TransferIntent, error) {
	var intent *models.TransferIntent
	err := s.store.WithTx(func(tx *gorm.DB) error {
		var err error
		intent, err = s.sendIntentTx(tx, sender, destChain, recipients, amounts, total, routeRef, routePayload)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(intentToMessage(intent))
	s.pushEvent("intent_sent", intent)
	return intent, nil
}

// sendIntentTx validates policy, refills and consumes the bucket, burns
// from the sender and records the pending intent, all on the caller's
// transaction.
func (s *GatewayService) sendIntentTx(tx *gorm.DB, sender string, destChain uint32, recipients []string, amounts []*big.Int, total *big.Int, routeRef, routePayload string) (*models.TransferIntent, error) {
	now := time.Now().UTC()

	vault, err := loadVaultState(tx)
	if err != nil {
		return nil, err
	}
	if vault.Paused {
		return nil, ErrPaused
	}

	var chain models.ChainConfig
	if err := tx.First(&chain, "chain_id = ?", destChain).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chain %d: %w", destChain, ErrChainNotEnabled)
		}
		return nil, err
	}
	if !chain.Enabled {
		return nil, fmt.Errorf("chain %d: %w", destChain, ErrChainNotEnabled)
	}

	minTransfer := utils.MustParseAmount(chain.MinTransfer)
	maxTransfer := utils.MustParseAmount(chain.MaxTransfer)
	if total.Sign() == 0 || total.Cmp(minTransfer) < 0 || (maxTransfer.Sign() > 0 && total.Cmp(maxTransfer) > 0) {
		metrics.TransfersRejectedTotal.WithLabelValues("out_of_bounds").Inc()
		return nil, fmt.Errorf("amount %s outside [%s, %s]: %w",
			total, chain.MinTransfer, chain.MaxTransfer, ErrAmountOutOfBounds)
	}

	var bucket models.RateLimitBucket
	if err := tx.First(&bucket, "chain_id = ?", destChain).Error; err != nil {
		return nil, err
	}
	available := refillBucket(&bucket, &chain, now)
	if total.Cmp(available) > 0 {
		metrics.TransfersRejectedTotal.WithLabelValues("rate_limited").Inc()
		return nil, fmt.Errorf("amount %s exceeds available %s: %w",
			total, available, ErrRateLimitExceeded)
	}
	available.Sub(available, total)
	bucket.Available = utils.FormatAmount(available)
	bucket.LastRefillAt = now
	if err := tx.Save(&bucket).Error; err != nil {
		return nil, err
	}
	publishBucketMetric(destChain, available)

	ledgerRow, state, err := loadLedgerState(tx)
	if err != nil {
		return nil, err
	}
	account, entry, err := loadAccountEntry(tx, sender, now)
	if err != nil {
		return nil, err
	}
	carriedRate := entry.RateBps
	if err := ledger.Burn(state, entry, total); err != nil {
		return nil, err
	}
	if err := saveAccountEntry(tx, account, entry); err != nil {
		return nil, err
	}
	if err := saveLedgerState(tx, ledgerRow, state); err != nil {
		return nil, err
	}

	recipientsJSON, err := json.Marshal(recipients)
	if err != nil {
		return nil, err
	}
	amountStrs := make([]string, len(amounts))
	for i, a := range amounts {
		amountStrs[i] = utils.FormatAmount(a)
	}
	amountsJSON, err := json.Marshal(amountStrs)
	if err != nil {
		return nil, err
	}

	intent := &models.TransferIntent{
		MessageID:      uuid.NewString(),
		SourceChainID:  s.chainID,
		DestChainID:    destChain,
		Sender:         sender,
		Recipients:     string(recipientsJSON),
		Amounts:        string(amountsJSON),
		TotalAmount:    utils.FormatAmount(total),
		CarriedRateBps: carriedRate,
		RouteTargetRef: routeRef,
		RoutePayload:   routePayload,
		Status:         models.IntentStatusPending,
	}
	if err := tx.Create(intent).Error; err != nil {
		return nil, err
	}

	metrics.TransfersOutTotal.WithLabelValues(strconv.FormatUint(uint64(destChain), 10)).Inc()
	s.log.WithFields(logrus.Fields{
		"messageId": intent.MessageID,
		"destChain": destChain,
		"total":     intent.TotalAmount,
		"rateBps":   carriedRate,
	}).Info("intent burned")
	return intent, nil
}

func (s *GatewayService) publish(msg *events.TransferIntentMessage) {
	if s.relay == nil || msg == nil {
		return
	}
	if err := s.relay.PublishIntent(msg); err != nil {
		// The burn is committed; the intent stays pending until the relay
		// recovers or an operator reconciles it.
		s.log.WithError(err).WithField("messageId", msg.MessageID).Error("intent publish failed")
	}
}

func (s *GatewayService) pushEvent(eventType string, data interface{}) {
	if s.push != nil {
		s.push.Broadcast(eventType, data)
	}
}

// refillBucket applies the linear refill and returns the projected
// available amount, clamped to capacity. The caller persists the result.
func refillBucket(bucket *models.RateLimitBucket, chain *models.ChainConfig, now time.Time) *big.Int {
	available := utils.MustParseAmount(bucket.Available)
	capacity := utils.MustParseAmount(chain.BucketCapacity)
	refillRate := utils.MustParseAmount(chain.BucketRefillPerSec)

	elapsed := int64(now.Sub(bucket.LastRefillAt) / time.Second)
	if elapsed > 0 && refillRate.Sign() > 0 {
		refill := new(big.Int).Mul(refillRate, big.NewInt(elapsed))
		available.Add(available, refill)
	}
	if available.Cmp(capacity) > 0 {
		available.Set(capacity)
	}
	return available
}

func publishBucketMetric(chainID uint32, available *big.Int) {
	f, _ := new(big.Float).SetInt(available).Float64()
	metrics.RateLimitBucketAvailable.WithLabelValues(strconv.FormatUint(uint64(chainID), 10)).Set(f)
}

func intentToMessage(intent *models.TransferIntent) *events.TransferIntentMessage {
	var recipients, amounts []string
	_ = json.Unmarshal([]byte(intent.Recipients), &recipients)
	_ = json.Unmarshal([]byte(intent.Amounts), &amounts)
	return &events.TransferIntentMessage{
		MessageID:      intent.MessageID,
		SourceChainID:  intent.SourceChainID,
		DestChainID:    intent.DestChainID,
		Sender:         intent.Sender,
		Recipients:     recipients,
		Amounts:        amounts,
		TotalAmount:    intent.TotalAmount,
		CarriedRateBps: intent.CarriedRateBps,
		RouteTargetRef: intent.RouteTargetRef,
		RoutePayload:   intent.RoutePayload,
		SentAtUnix:     intent.CreatedAt.Unix(),
	}
}

func messageToIntent(msg *events.TransferIntentMessage) *models.TransferIntent {
	recipientsJSON, _ := json.Marshal(msg.Recipients)
	amountsJSON, _ := json.Marshal(msg.Amounts)
	return &models.TransferIntent{
		MessageID:      msg.MessageID,
		SourceChainID:  msg.SourceChainID,
		DestChainID:    msg.DestChainID,
		Sender:         msg.Sender,
		Recipients:     string(recipientsJSON),
		Amounts:        string(amountsJSON),
		TotalAmount:    msg.TotalAmount,
		CarriedRateBps: msg.CarriedRateBps,
		RouteTargetRef: msg.RouteTargetRef,
		RoutePayload:   msg.RoutePayload,
	}
}
