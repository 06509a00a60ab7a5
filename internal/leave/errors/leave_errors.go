package leaveerrors

import (
	"net/http"

	"go-leave/internal/shared/apperror"
)

var (
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidRequestID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"start_date must be before or equal end_date",
		http.StatusBadRequest,
	)
	ErrInvalidCategory = apperror.New(
		apperror.CodeInvalidInput,
		"unrecognized leave category",
		http.StatusBadRequest,
	)
	ErrHalfDayPeriodRequired = apperror.New(
		apperror.CodeInvalidInput,
		"half_day_period is required for a single-day half-day request",
		http.StatusBadRequest,
	)
	ErrHalfDayPeriodNotAllowed = apperror.New(
		apperror.CodeInvalidInput,
		"half_day_period is only valid on a single-day half-day request",
		http.StatusBadRequest,
	)
	ErrLeaveOverlap = apperror.New(
		apperror.CodeConflict,
		"an active leave request already covers part of this period",
		http.StatusConflict,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeInsufficientBalance,
		"projected leave balance is less than the requested days",
		http.StatusUnprocessableEntity,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrInvalidStatusTransition = apperror.New(
		apperror.CodeInvalidState,
		"leave request status does not permit this transition",
		http.StatusConflict,
	)
	ErrLeaveAlreadyStarted = apperror.New(
		apperror.CodeInvalidState,
		"leave starting today or earlier can no longer be cancelled",
		http.StatusConflict,
	)
	ErrNotRequestOwner = apperror.New(
		apperror.CodeForbidden,
		"only the employee the request is for may perform this action",
		http.StatusForbidden,
	)
	ErrNotDirectManager = apperror.New(
		apperror.CodeForbidden,
		"only the subject's direct manager may decide at this stage",
		http.StatusForbidden,
	)
	ErrReviewerRoleRequired = apperror.New(
		apperror.CodeForbidden,
		"final decisions require reviewer authority",
		http.StatusForbidden,
	)
	ErrManagerRoleRequired = apperror.New(
		apperror.CodeForbidden,
		"the team queue requires manager authority",
		http.StatusForbidden,
	)
	ErrSubjectAccessDenied = apperror.New(
		apperror.CodeForbidden,
		"you may only view your own leave data, your reports', or hold reviewer authority",
		http.StatusForbidden,
	)
	ErrCommentRequired = apperror.New(
		apperror.CodeInvalidInput,
		"comment is required when rejecting",
		http.StatusBadRequest,
	)
)
