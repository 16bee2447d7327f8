package handlers

import (
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	settlementService *service.SettlementService
	commissionService *service.CommissionService
	payoutService     *service.PayoutService
	ledgerService     *service.LedgerService
	membershipService *service.MembershipService
	admins            map[int64]struct{}
	logger            *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	settlementService *service.SettlementService,
	commissionService *service.CommissionService,
	payoutService *service.PayoutService,
	ledgerService *service.LedgerService,
	membershipService *service.MembershipService,
	adminIDs []int64,
	logger *zap.Logger,
) *Handlers {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Handlers{
		settlementService: settlementService,
		commissionService: commissionService,
		payoutService:     payoutService,
		ledgerService:     ledgerService,
		membershipService: membershipService,
		admins:            admins,
		logger:            logger,
	}
}

// IsAdmin проверяет, есть ли пользователь в списке администраторов
func (h *Handlers) IsAdmin(telegramID int64) bool {
	_, ok := h.admins[telegramID]
	return ok
}
