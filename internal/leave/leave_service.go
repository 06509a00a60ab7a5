package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-leave/internal/events"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"
	"go-leave/internal/shared/locker"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock

type Service interface {
	Submit(ctx context.Context, subjectID string, req SubmitLeaveRequest) (LeaveResponse, error)
	Cancel(ctx context.Context, actorID, requestID string) (LeaveResponse, error)
	ManagerDecide(ctx context.Context, actorID, requestID string, req DecisionRequest) (LeaveResponse, error)
	ReviewerDecide(ctx context.Context, actorID, requestID string, req DecisionRequest) (LeaveResponse, error)
	GetByID(ctx context.Context, requestID string) (LeaveResponse, error)
	GetBySubject(ctx context.Context, actorID, subjectID string) ([]LeaveResponse, error)
	ReviewQueue(ctx context.Context, actorID string) ([]LeaveResponse, error)
	TeamQueue(ctx context.Context, actorID string) ([]LeaveResponse, error)
	ProjectedBalance(ctx context.Context, actorID, subjectID string, year int) (BalanceResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	dir    Directory
	guard  *guard
	ledger *ledger
	locks  *locker.Keyed
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	dir Directory,
	locks *locker.Keyed,
	rdb *redis.Client,
	outboxRepo kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave_service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &service{
		db:     db,
		repo:   repo,
		dir:    dir,
		guard:  newGuard(dir),
		ledger: newLedger(dir, repo, rdb, l),
		locks:  locks,
		outbox: outboxRepo,
		logger: l,
	}
}

func (s *service) Submit(ctx context.Context, subjectID string, req SubmitLeaveRequest) (LeaveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("submit leave attempt",
		zap.String("request_id", rid),
		zap.String("subject_id", subjectID),
		zap.String("category", req.Category),
	)

	subjectUUID, err := uuid.Parse(subjectID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}
	if !ValidCategory(req.Category) {
		return LeaveResponse{}, leaveerrors.ErrInvalidCategory
	}

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}

	singleDay := startDate.Equal(endDate)
	if req.IsHalfDay && singleDay && req.HalfDayPeriod == nil {
		return LeaveResponse{}, leaveerrors.ErrHalfDayPeriodRequired
	}
	if req.HalfDayPeriod != nil && (!req.IsHalfDay || !singleDay) {
		return LeaveResponse{}, leaveerrors.ErrHalfDayPeriodNotAllowed
	}

	// subject must be a known active employee
	if _, err := s.dir.RoleOf(ctx, subjectID); err != nil {
		return LeaveResponse{}, err
	}

	totalDays := computeTotalDays(startDate, endDate, req.IsHalfDay)

	release, err := s.acquire(ctx, "subject:"+subjectID)
	if err != nil {
		return LeaveResponse{}, err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	overlap, err := qtx.HasOverlappingPeriod(ctx, subjectID, startDate, endDate)
	if err != nil {
		s.logger.Error("overlap check failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}
	if overlap {
		s.logger.Warn("submit leave rejected: overlapping period",
			zap.String("subject_id", subjectID),
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
		)
		return LeaveResponse{}, leaveerrors.ErrLeaveOverlap
	}

	available, tracked, err := s.ledger.projectedAvailable(ctx, subjectID, req.Category, startDate.Year())
	if err != nil {
		return LeaveResponse{}, err
	}
	if tracked && available.LessThan(totalDays) {
		s.logger.Warn("submit leave rejected: insufficient balance",
			zap.String("subject_id", subjectID),
			zap.String("category", req.Category),
			zap.String("requested", totalDays.String()),
			zap.String("available", available.String()),
		)
		return LeaveResponse{}, leaveerrors.ErrInsufficientBalance
	}

	l := &LeaveRequest{
		ID:            uuid.New(),
		SubjectID:     subjectUUID,
		Category:      req.Category,
		StartDate:     startDate,
		EndDate:       endDate,
		IsHalfDay:     req.IsHalfDay,
		TotalDays:     totalDays,
		Reason:        req.Reason,
		HandoverNotes: req.HandoverNotes,
		Status:        StatusPending,
		CreatedBy:     subjectUUID,
	}
	if req.IsHalfDay && singleDay {
		l.HalfDayPeriod = req.HalfDayPeriod
	}

	if err := qtx.Create(ctx, l); err != nil {
		s.logger.Error("create leave failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	entry := &DecisionEntry{
		ID:        uuid.New(),
		RequestID: l.ID,
		Seq:       1,
		ActorID:   subjectUUID,
		Action:    ActionSubmit,
		CreatedAt: time.Now().UTC(),
	}
	if err := qtx.AppendDecision(ctx, entry); err != nil {
		s.logger.Error("append decision failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	l.Decisions = []DecisionEntry{*entry}
	s.logger.Info("leave submitted",
		zap.String("leave_id", l.ID.String()),
		zap.String("subject_id", subjectID),
		zap.String("category", l.Category),
		zap.String("total_days", l.TotalDays.String()),
	)
	return mapToResponse(*l), nil
}

func (s *service) Cancel(ctx context.Context, actorID, requestID string) (LeaveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("cancel leave attempt",
		zap.String("request_id", rid),
		zap.String("actor_id", actorID),
		zap.String("leave_id", requestID),
	)

	actorUUID, err := parseActorAndLeaveID(actorID, requestID)
	if err != nil {
		return LeaveResponse{}, err
	}

	release, err := s.acquire(ctx, "request:"+requestID)
	if err != nil {
		return LeaveResponse{}, err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}

	if err := s.guard.canTransition(ctx, actorID, l, TransitionCancel); err != nil {
		s.logger.Warn("cancel leave forbidden",
			zap.String("actor_id", actorID),
			zap.String("leave_id", requestID),
		)
		return LeaveResponse{}, err
	}

	if !isAllowedStatusTransition(l.Status, StatusCancelled) {
		s.logger.Warn("cancel leave rejected: invalid status",
			zap.String("leave_id", requestID),
			zap.String("status", l.Status),
		)
		return LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !l.StartDate.After(today) {
		return LeaveResponse{}, leaveerrors.ErrLeaveAlreadyStarted
	}

	l.Status = StatusCancelled
	if err := qtx.Update(ctx, l); err != nil {
		s.logger.Error("update leave failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	entry := &DecisionEntry{
		ID:        uuid.New(),
		RequestID: l.ID,
		Seq:       len(l.Decisions) + 1,
		ActorID:   actorUUID,
		Action:    ActionCancel,
		CreatedAt: now,
	}
	if err := qtx.AppendDecision(ctx, entry); err != nil {
		s.logger.Error("append decision failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	l.Decisions = append(l.Decisions, *entry)
	s.logger.Info("leave cancelled",
		zap.String("leave_id", l.ID.String()),
		zap.String("actor_id", actorID),
	)
	return mapToResponse(*l), nil
}

func (s *service) ManagerDecide(ctx context.Context, actorID, requestID string, req DecisionRequest) (LeaveResponse, error) {
	target := StatusApprovedByManager
	if req.Action == "reject" {
		target = StatusRejectedByManager
	}
	return s.decide(ctx, actorID, requestID, TransitionManagerDecide, target, req.Comment)
}

func (s *service) ReviewerDecide(ctx context.Context, actorID, requestID string, req DecisionRequest) (LeaveResponse, error) {
	target := StatusApproved
	if req.Action == "reject" {
		target = StatusRejectedByReviewer
	}
	return s.decide(ctx, actorID, requestID, TransitionReviewerDecide, target, req.Comment)
}

func (s *service) decide(ctx context.Context, actorID, requestID, kind, target, comment string) (LeaveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("leave decision attempt",
		zap.String("request_id", rid),
		zap.String("actor_id", actorID),
		zap.String("leave_id", requestID),
		zap.String("target_status", target),
	)

	actorUUID, err := parseActorAndLeaveID(actorID, requestID)
	if err != nil {
		return LeaveResponse{}, err
	}

	if (target == StatusRejectedByManager || target == StatusRejectedByReviewer) && comment == "" {
		return LeaveResponse{}, leaveerrors.ErrCommentRequired
	}

	release, err := s.acquire(ctx, "request:"+requestID)
	if err != nil {
		return LeaveResponse{}, err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}

	if err := s.guard.canTransition(ctx, actorID, l, kind); err != nil {
		s.logger.Warn("leave decision forbidden",
			zap.String("actor_id", actorID),
			zap.String("leave_id", requestID),
			zap.String("target_status", target),
		)
		return LeaveResponse{}, err
	}

	if !isAllowedStatusTransition(l.Status, target) {
		s.logger.Warn("leave decision rejected: invalid status",
			zap.String("leave_id", requestID),
			zap.String("status", l.Status),
			zap.String("target_status", target),
		)
		return LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
	}

	if target == StatusApproved {
		if err := s.ledger.debit(ctx, tx, l.SubjectID.String(), l.Category, l.TotalDays, l.StartDate.Year()); err != nil {
			return LeaveResponse{}, err
		}
	}

	l.Status = target
	if err := qtx.Update(ctx, l); err != nil {
		s.logger.Error("update leave failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	entry := &DecisionEntry{
		ID:        uuid.New(),
		RequestID: l.ID,
		Seq:       len(l.Decisions) + 1,
		ActorID:   actorUUID,
		Action:    actionForTarget(target),
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := qtx.AppendDecision(ctx, entry); err != nil {
		s.logger.Error("append decision failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	if s.outbox != nil && isTerminalStatus(target) && target != StatusCancelled {
		if err := s.persistDecisionEvent(ctx, tx, rid, actorID, l); err != nil {
			return LeaveResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	l.Decisions = append(l.Decisions, *entry)
	s.logger.Info("leave decision recorded",
		zap.String("leave_id", l.ID.String()),
		zap.String("actor_id", actorID),
		zap.String("status", l.Status),
	)
	return mapToResponse(*l), nil
}

func (s *service) persistDecisionEvent(ctx context.Context, tx *sql.Tx, rid, actorID string, l *LeaveRequest) error {
	event := events.LeaveDecisionEvent{
		EventType:  decisionEventType(l.Status),
		RequestID:  l.ID.String(),
		SubjectID:  l.SubjectID.String(),
		Category:   l.Category,
		TotalDays:  l.TotalDays.String(),
		Status:     l.Status,
		DecidedBy:  actorID,
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: "leave_request",
		AggregateID:   l.ID.String(),
		EventType:     event.EventType,
		Topic:         events.LeaveDecisionTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("leave decision outbox persist failed",
			zap.String("leave_id", l.ID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, requestID string) (LeaveResponse, error) {
	if _, err := uuid.Parse(requestID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidRequestID
	}

	l, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}
	return mapToResponse(*l), nil
}

func (s *service) GetBySubject(ctx context.Context, actorID, subjectID string) ([]LeaveResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return nil, leaveerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(subjectID); err != nil {
		return nil, leaveerrors.ErrInvalidActorID
	}
	if err := s.guard.canViewSubject(ctx, actorID, subjectID); err != nil {
		return nil, err
	}

	leaves, err := s.repo.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

func (s *service) ReviewQueue(ctx context.Context, actorID string) ([]LeaveResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return nil, leaveerrors.ErrInvalidActorID
	}
	if err := s.guard.requireReviewer(ctx, actorID); err != nil {
		return nil, err
	}

	leaves, err := s.repo.FindByStatus(ctx, StatusApprovedByManager)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

// TeamQueue lists the pending requests of the actor's direct reports.
func (s *service) TeamQueue(ctx context.Context, actorID string) ([]LeaveResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return nil, leaveerrors.ErrInvalidActorID
	}
	if err := s.guard.requireManager(ctx, actorID); err != nil {
		return nil, err
	}

	reports, err := s.dir.DirectReports(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return []LeaveResponse{}, nil
	}

	leaves, err := s.repo.FindBySubjectsAndStatus(ctx, reports, StatusPending)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

func (s *service) ProjectedBalance(ctx context.Context, actorID, subjectID string, year int) (BalanceResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return BalanceResponse{}, leaveerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(subjectID); err != nil {
		return BalanceResponse{}, leaveerrors.ErrInvalidActorID
	}
	if err := s.guard.canViewSubject(ctx, actorID, subjectID); err != nil {
		return BalanceResponse{}, err
	}
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	if _, err := s.dir.RoleOf(ctx, subjectID); err != nil {
		return BalanceResponse{}, err
	}

	categories, err := s.ledger.report(ctx, subjectID, year)
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{SubjectID: subjectID, Year: year, Categories: categories}, nil
}

func (s *service) acquire(ctx context.Context, key string) (func(), error) {
	release, err := s.locks.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, locker.ErrWaitExpired) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("lock wait expired", zap.String("key", key))
			return nil, apperror.ErrRetryable
		}
		return nil, err
	}
	return release, nil
}

func parseActorAndLeaveID(actorID, requestID string) (uuid.UUID, error) {
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, leaveerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(requestID); err != nil {
		return uuid.Nil, leaveerrors.ErrInvalidRequestID
	}
	return actorUUID, nil
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.ParseInLocation(dateLayout, start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	endDate, err := time.ParseInLocation(dateLayout, end, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateRange
	}
	return startDate, endDate, nil
}

func decisionEventType(status string) string {
	if status == StatusApproved {
		return "leave_approved"
	}
	return "leave_final_rejected"
}
