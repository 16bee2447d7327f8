package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"
	"github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/storage"
)

// memStore - хранилище в памяти для тестов сервисов.
// Транзакции выполняются по одной над копией состояния и применяются только при успехе.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// failAppend имитирует сбой записи проводок
	failAppend bool
}

type memBranch struct {
	companyID int64
	managerID *int64
}

type memState struct {
	nextID int64

	users         map[int64]model.User
	companyOwners map[int64]int64 // company -> owner
	branches      map[int64]memBranch
	enrollments   map[int64]model.Enrollment
	lessons       map[int64]model.Lesson
	rates         map[int64]model.CommissionRate
	ledger        []model.LedgerEntry
	passes        map[int64]model.Pass
	usages        []model.PassUsage
	payouts       map[int64]model.PayoutRequest
	links         []model.PayoutLessonLink
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		users:         map[int64]model.User{},
		companyOwners: map[int64]int64{},
		branches:      map[int64]memBranch{},
		enrollments:   map[int64]model.Enrollment{},
		lessons:       map[int64]model.Lesson{},
		rates:         map[int64]model.CommissionRate{},
		passes:        map[int64]model.Pass{},
		payouts:       map[int64]model.PayoutRequest{},
	}}
}

func (st *memState) clone() *memState {
	c := &memState{
		nextID:        st.nextID,
		users:         make(map[int64]model.User, len(st.users)),
		companyOwners: make(map[int64]int64, len(st.companyOwners)),
		branches:      make(map[int64]memBranch, len(st.branches)),
		enrollments:   make(map[int64]model.Enrollment, len(st.enrollments)),
		lessons:       make(map[int64]model.Lesson, len(st.lessons)),
		rates:         make(map[int64]model.CommissionRate, len(st.rates)),
		ledger:        append([]model.LedgerEntry(nil), st.ledger...),
		passes:        make(map[int64]model.Pass, len(st.passes)),
		usages:        append([]model.PassUsage(nil), st.usages...),
		payouts:       make(map[int64]model.PayoutRequest, len(st.payouts)),
		links:         append([]model.PayoutLessonLink(nil), st.links...),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.companyOwners {
		c.companyOwners[k] = v
	}
	for k, v := range st.branches {
		c.branches[k] = v
	}
	for k, v := range st.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range st.lessons {
		c.lessons[k] = v
	}
	for k, v := range st.rates {
		c.rates[k] = v
	}
	for k, v := range st.passes {
		c.passes[k] = v
	}
	for k, v := range st.payouts {
		c.payouts[k] = v
	}
	return c
}

func (st *memState) id() int64 {
	st.nextID++
	return st.nextID
}

// memHandle даёт репозиториям доступ к состоянию.
// Вне транзакции каждый вызов берёт мьютекс, внутри транзакции мьютекс уже взят.
type memHandle struct {
	store *memStore
	tx    *memState
}

func (h memHandle) with(fn func(st *memState)) {
	if h.tx != nil {
		fn(h.tx)
		return
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	fn(h.store.state)
}

func (s *memStore) repos(h memHandle) storage.Repos {
	return storage.Repos{
		Lessons:     memLessons{h},
		Enrollments: memEnrollments{h},
		Users:       memUsers{h},
		Rates:       memRates{h},
		Ledger:      memLedger{h},
		Passes:      memPasses{h},
		Payouts:     memPayouts{h},
	}
}

func (s *memStore) Repos() storage.Repos {
	return s.repos(memHandle{store: s})
}

func (s *memStore) InTx(ctx context.Context, fn storage.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(ctx, s.repos(memHandle{store: s, tx: tx})); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *memStore) Close() {}

// snapshot возвращает копию состояния для проверок
func (s *memStore) snapshot() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// ---- наполнение ----

func (s *memStore) addTherapist(price int64, branchID *int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.state.id()
	tg := 1000 + id
	s.state.users[id] = model.User{
		ID:          id,
		TelegramID:  &tg,
		FirstName:   fmt.Sprintf("therapist-%d", id),
		Role:        model.RoleTherapist,
		BranchID:    branchID,
		LessonPrice: price,
	}
	return id
}

func (s *memStore) addBranch(managerID *int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	companyID := s.state.id()
	s.state.companyOwners[companyID] = -1
	branchID := s.state.id()
	s.state.branches[branchID] = memBranch{companyID: companyID, managerID: managerID}
	return branchID
}

func (s *memStore) addEnrollment(therapistID int64, rate *int64) (enrollmentID, childID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	childID = s.state.id()
	enrollmentID = s.state.id()
	s.state.enrollments[enrollmentID] = model.Enrollment{
		ID:          enrollmentID,
		ChildID:     childID,
		TherapistID: therapistID,
		LessonRate:  rate,
	}
	return enrollmentID, childID
}

func (s *memStore) addLesson(therapistID int64, enrollmentID *int64, endAt time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.state.id()
	s.state.lessons[id] = model.Lesson{
		ID:           id,
		TherapistID:  therapistID,
		EnrollmentID: enrollmentID,
		StartAt:      endAt.Add(-time.Hour),
		EndAt:        endAt,
		Status:       model.LessonStatusCompleted,
		PayoutStatus: model.LessonPayoutNone,
	}
	return id
}

func (s *memStore) addPass(p model.Pass) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.state.id()
	if p.Status == "" {
		p.Status = model.PassStatusActive
	}
	s.state.passes[p.ID] = p
	return p.ID
}

func (s *memStore) addRate(therapistID int64, percent int, from time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.state.id()
	s.state.rates[id] = model.CommissionRate{ID: id, TherapistID: therapistID, Percent: percent, ValidFrom: from}
}

// ---- выборки состояния ----

func (st *memState) entriesForLesson(lessonID int64) []model.LedgerEntry {
	var out []model.LedgerEntry
	for _, e := range st.ledger {
		if e.LessonID != nil && *e.LessonID == lessonID {
			out = append(out, e)
		}
	}
	return out
}

func (st *memState) entriesForPayout(payoutID int64) []model.LedgerEntry {
	var out []model.LedgerEntry
	for _, e := range st.ledger {
		if e.PayoutID != nil && *e.PayoutID == payoutID {
			out = append(out, e)
		}
	}
	return out
}

func (st *memState) usagesForLesson(lessonID int64) int {
	n := 0
	for _, u := range st.usages {
		if u.LessonID == lessonID {
			n++
		}
	}
	return n
}

func (st *memState) personalLesson(lessonID int64) bool {
	for _, e := range st.entriesForLesson(lessonID) {
		if e.Personal {
			return true
		}
	}
	return false
}

func (st *memState) eligible(l model.Lesson) bool {
	return l.SettledAt != nil && l.PayoutStatus == model.LessonPayoutNone && !st.personalLesson(l.ID)
}

func (st *memState) sortedLessons(therapistID int64) []model.Lesson {
	var out []model.Lesson
	for _, l := range st.lessons {
		if l.TherapistID == therapistID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SettledAt != nil && out[j].SettledAt != nil && !out[i].SettledAt.Equal(*out[j].SettledAt) {
			return out[i].SettledAt.Before(*out[j].SettledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ---- репозитории ----

type memLessons struct{ memHandle }

func (r memLessons) GetByID(_ context.Context, id int64) (*model.Lesson, error) {
	var out *model.Lesson
	r.with(func(st *memState) {
		if l, ok := st.lessons[id]; ok {
			out = &l
		}
	})
	return out, nil
}

func (r memLessons) MarkSettled(_ context.Context, id int64, snap model.LessonSnapshot) (bool, error) {
	ok := false
	r.with(func(st *memState) {
		l, found := st.lessons[id]
		if !found || l.SettledAt != nil {
			return
		}
		at := snap.SettledAt
		percent := snap.Percent
		revenue, therapist, leader := snap.Revenue, snap.TherapistShare, snap.LeaderShare
		l.SettledAt = &at
		l.CommissionPercentAtTime = &percent
		l.RevenueAtTime = &revenue
		l.TherapistShareAtTime = &therapist
		l.LeaderShareAtTime = &leader
		st.lessons[id] = l
		ok = true
	})
	return ok, nil
}

func (r memLessons) EnsureSettledAt(_ context.Context, id int64, at time.Time) error {
	r.with(func(st *memState) {
		l, found := st.lessons[id]
		if found && l.SettledAt == nil {
			l.SettledAt = &at
			st.lessons[id] = l
		}
	})
	return nil
}

func (r memLessons) ListUnsettledEnded(_ context.Context, before time.Time, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	r.with(func(st *memState) {
		for _, l := range st.lessons {
			if l.ID > afterID && l.SettledAt == nil && l.Status != model.LessonStatusCancelled && !l.EndAt.After(before) {
				ids = append(ids, l.ID)
			}
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r memLessons) ListPayoutLessons(_ context.Context, therapistID int64, settledUpTo time.Time) ([]*model.PayoutLesson, error) {
	var out []*model.PayoutLesson
	r.with(func(st *memState) {
		for _, l := range st.sortedLessons(therapistID) {
			if !st.eligible(l) || l.SettledAt.After(settledUpTo) {
				continue
			}
			pl := &model.PayoutLesson{
				LessonID:       l.ID,
				SettledAt:      *l.SettledAt,
				Percent:        l.CommissionPercentAtTime,
				Revenue:        l.RevenueAtTime,
				TherapistShare: l.TherapistShareAtTime,
				LeaderShare:    l.LeaderShareAtTime,
				PaidBy:         model.PayerLeader,
			}
			for _, e := range st.entriesForLesson(l.ID) {
				if e.NominalPrice != nil && (pl.NominalPrice == nil || *e.NominalPrice > *pl.NominalPrice) {
					v := *e.NominalPrice
					pl.NominalPrice = &v
				}
				if e.Kind == model.EntryRevenue {
					var sum int64
					if pl.RevenueEntry != nil {
						sum = *pl.RevenueEntry
					}
					sum += e.Amount
					pl.RevenueEntry = &sum
				}
				if e.PaymentMethod != nil && *e.PaymentMethod == model.PaymentCashTherapist {
					pl.PaidBy = model.PayerTherapist
				}
			}
			if l.EnrollmentID != nil {
				if en, ok := st.enrollments[*l.EnrollmentID]; ok {
					pl.ContractRate = en.LessonRate
				}
			}
			out = append(out, pl)
		}
	})
	return out, nil
}

func (r memLessons) CountEligibleSettledBetween(_ context.Context, therapistID int64, after, upTo time.Time) (int, error) {
	n := 0
	r.with(func(st *memState) {
		for _, l := range st.lessons {
			if l.TherapistID == therapistID && st.eligible(l) && l.SettledAt.After(after) && !l.SettledAt.After(upTo) {
				n++
			}
		}
	})
	return n, nil
}

func (r memLessons) HasEligibleUnpaid(_ context.Context, therapistID int64) (bool, error) {
	found := false
	r.with(func(st *memState) {
		for _, l := range st.lessons {
			if l.TherapistID == therapistID && st.eligible(l) {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r memLessons) MarkPaid(_ context.Context, ids []int64) (int64, error) {
	var n int64
	r.with(func(st *memState) {
		for _, id := range ids {
			l, ok := st.lessons[id]
			if ok && l.PayoutStatus == model.LessonPayoutNone {
				l.PayoutStatus = model.LessonPayoutPaid
				st.lessons[id] = l
				n++
			}
		}
	})
	return n, nil
}

type memEnrollments struct{ memHandle }

func (r memEnrollments) GetByID(_ context.Context, id int64) (*model.Enrollment, error) {
	var out *model.Enrollment
	r.with(func(st *memState) {
		if e, ok := st.enrollments[id]; ok {
			out = &e
		}
	})
	return out, nil
}

type memUsers struct{ memHandle }

func (r memUsers) GetScope(_ context.Context, therapistID int64) (*model.TherapistScope, error) {
	var out *model.TherapistScope
	r.with(func(st *memState) {
		u, ok := st.users[therapistID]
		if !ok {
			return
		}
		scope := &model.TherapistScope{
			TherapistID:  u.ID,
			TelegramID:   u.TelegramID,
			BranchID:     u.BranchID,
			DefaultPrice: u.LessonPrice,
			Personal:     u.BranchID == nil,
		}
		if u.BranchID != nil {
			if b, ok := st.branches[*u.BranchID]; ok {
				companyID := b.companyID
				scope.CompanyID = &companyID
			}
		}
		for _, owner := range st.companyOwners {
			if owner == u.ID {
				scope.Personal = true
			}
		}
		for _, b := range st.branches {
			if b.managerID != nil && *b.managerID == u.ID {
				scope.Personal = true
			}
		}
		out = scope
	})
	return out, nil
}

func (r memUsers) LockTherapist(_ context.Context, therapistID int64) (bool, error) {
	found := false
	r.with(func(st *memState) {
		_, found = st.users[therapistID]
	})
	return found, nil
}

func (r memUsers) DetachBranch(_ context.Context, therapistID int64) error {
	var err error
	r.with(func(st *memState) {
		u, ok := st.users[therapistID]
		if !ok {
			err = fmt.Errorf("therapist not found")
			return
		}
		u.BranchID = nil
		st.users[therapistID] = u
	})
	return err
}

type memRates struct{ memHandle }

func (r memRates) RateAt(_ context.Context, therapistID int64, at time.Time) (*model.CommissionRate, error) {
	var out *model.CommissionRate
	r.with(func(st *memState) {
		for _, rate := range st.rates {
			if rate.TherapistID == therapistID && rate.Covers(at) {
				if out == nil || rate.ValidFrom.After(out.ValidFrom) {
					rate := rate
					out = &rate
				}
			}
		}
	})
	return out, nil
}

func (r memRates) GetOpen(_ context.Context, therapistID int64) (*model.CommissionRate, error) {
	var out *model.CommissionRate
	r.with(func(st *memState) {
		for _, rate := range st.rates {
			if rate.TherapistID == therapistID && rate.IsOpen() {
				rate := rate
				out = &rate
			}
		}
	})
	return out, nil
}

func (r memRates) ListByTherapist(_ context.Context, therapistID int64) ([]*model.CommissionRate, error) {
	var out []*model.CommissionRate
	r.with(func(st *memState) {
		for _, rate := range st.rates {
			if rate.TherapistID == therapistID {
				rate := rate
				out = append(out, &rate)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ValidFrom.Before(out[j].ValidFrom) })
	return out, nil
}

func (r memRates) Close(_ context.Context, id int64, validTo time.Time) error {
	var err error
	r.with(func(st *memState) {
		rate, ok := st.rates[id]
		if !ok || !rate.IsOpen() {
			err = fmt.Errorf("rate %d is not open", id)
			return
		}
		rate.ValidTo = &validTo
		st.rates[id] = rate
	})
	return err
}

func (r memRates) Create(_ context.Context, rate *model.CommissionRate) error {
	var err error
	r.with(func(st *memState) {
		for _, existing := range st.rates {
			if existing.TherapistID == rate.TherapistID && existing.IsOpen() && rate.ValidTo == nil {
				err = storage.ErrDuplicate
				return
			}
		}
		rate.ID = st.id()
		st.rates[rate.ID] = *rate
	})
	return err
}

type memLedger struct{ memHandle }

func (r memLedger) Append(_ context.Context, entries []*model.LedgerEntry) error {
	if r.store.failAppend {
		return fmt.Errorf("ledger unavailable")
	}
	r.with(func(st *memState) {
		for _, e := range entries {
			e.ID = st.id()
			st.ledger = append(st.ledger, *e)
		}
	})
	return nil
}

func (r memLedger) Balance(_ context.Context, therapistID int64) (model.Balance, error) {
	var b model.Balance
	r.with(func(st *memState) {
		for _, e := range st.ledger {
			if e.TherapistID != therapistID || e.Personal {
				continue
			}
			switch e.Kind {
			case model.EntryTherapistBalance:
				b.TherapistBalance += e.Amount
			case model.EntryCashHeld:
				b.CashHeld += e.Amount
			case model.EntryRevenue:
				b.Revenue += e.Amount
			case model.EntryPayout:
				b.Payouts += e.Amount
			case model.EntrySettlement:
				b.Corrections += e.Amount
			}
		}
	})
	return b, nil
}

func (r memLedger) ListByLesson(_ context.Context, lessonID int64) ([]*model.LedgerEntry, error) {
	var out []*model.LedgerEntry
	r.with(func(st *memState) {
		for _, e := range st.entriesForLesson(lessonID) {
			e := e
			out = append(out, &e)
		}
	})
	return out, nil
}

func (r memLedger) ListByPayout(_ context.Context, payoutID int64) ([]*model.LedgerEntry, error) {
	var out []*model.LedgerEntry
	r.with(func(st *memState) {
		for _, e := range st.entriesForPayout(payoutID) {
			e := e
			out = append(out, &e)
		}
	})
	return out, nil
}

type memPasses struct{ memHandle }

func (r memPasses) FindUsable(_ context.Context, childID, therapistID int64, at time.Time) (*model.Pass, error) {
	var out *model.Pass
	r.with(func(st *memState) {
		ids := make([]int64, 0, len(st.passes))
		for id := range st.passes {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			p := st.passes[id]
			if p.ChildID == childID && p.IsUsable(at, therapistID) {
				out = &p
				return
			}
		}
	})
	return out, nil
}

func (r memPasses) CreateUsage(_ context.Context, usage *model.PassUsage) (bool, error) {
	created := false
	r.with(func(st *memState) {
		if st.usagesForLesson(usage.LessonID) > 0 {
			return
		}
		usage.ID = st.id()
		st.usages = append(st.usages, *usage)
		created = true
	})
	return created, nil
}

func (r memPasses) ConsumeOne(_ context.Context, passID int64) error {
	var err error
	r.with(func(st *memState) {
		p, ok := st.passes[passID]
		if !ok || p.RemainingLessons <= 0 {
			err = fmt.Errorf("pass %d has no remaining lessons", passID)
			return
		}
		p.RemainingLessons--
		if p.RemainingLessons == 0 {
			p.Status = model.PassStatusExhausted
		}
		st.passes[passID] = p
	})
	return err
}

func (r memPasses) GetByID(_ context.Context, id int64) (*model.Pass, error) {
	var out *model.Pass
	r.with(func(st *memState) {
		if p, ok := st.passes[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r memPasses) GetUsageByLesson(_ context.Context, lessonID int64) (*model.PassUsage, error) {
	var out *model.PassUsage
	r.with(func(st *memState) {
		for _, u := range st.usages {
			if u.LessonID == lessonID {
				u := u
				out = &u
			}
		}
	})
	return out, nil
}

type memPayouts struct{ memHandle }

func (r memPayouts) Create(_ context.Context, req *model.PayoutRequest) error {
	var err error
	r.with(func(st *memState) {
		for _, p := range st.payouts {
			if p.TherapistID == req.TherapistID && p.IsPending() {
				err = storage.ErrDuplicate
				return
			}
		}
		req.ID = st.id()
		st.payouts[req.ID] = *req
	})
	return err
}

func (r memPayouts) GetByID(_ context.Context, id int64) (*model.PayoutRequest, error) {
	var out *model.PayoutRequest
	r.with(func(st *memState) {
		if p, ok := st.payouts[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r memPayouts) GetForUpdate(ctx context.Context, id int64) (*model.PayoutRequest, error) {
	return r.GetByID(ctx, id)
}

func (r memPayouts) GetPending(_ context.Context, therapistID int64) (*model.PayoutRequest, error) {
	var out *model.PayoutRequest
	r.with(func(st *memState) {
		for _, p := range st.payouts {
			if p.TherapistID == therapistID && p.IsPending() {
				p := p
				out = &p
			}
		}
	})
	return out, nil
}

func (r memPayouts) UpdateSnapshot(_ context.Context, req *model.PayoutRequest) error {
	var err error
	r.with(func(st *memState) {
		p, ok := st.payouts[req.ID]
		if !ok || !p.IsPending() {
			err = fmt.Errorf("payout request is not pending")
			return
		}
		p.BalanceSnapshot = req.BalanceSnapshot
		p.CashHeldSnapshot = req.CashHeldSnapshot
		p.FinalAmount = req.FinalAmount
		p.LessonCount = req.LessonCount
		p.CreatedAt = req.CreatedAt
		st.payouts[req.ID] = p
	})
	return err
}

func (r memPayouts) MarkPaid(_ context.Context, id, confirmedBy int64, amount int64, at time.Time) (bool, error) {
	ok := false
	r.with(func(st *memState) {
		p, found := st.payouts[id]
		if !found || !p.IsPending() {
			return
		}
		p.Status = model.PayoutStatusPaid
		p.ConfirmedBy = &confirmedBy
		p.PaidAmount = &amount
		p.ConfirmedAt = &at
		st.payouts[id] = p
		ok = true
	})
	return ok, nil
}

func (r memPayouts) LinkLessons(_ context.Context, payoutID int64, lessonIDs []int64, at time.Time) error {
	var err error
	r.with(func(st *memState) {
		for _, id := range lessonIDs {
			for _, link := range st.links {
				if link.LessonID == id {
					err = storage.ErrDuplicate
					return
				}
			}
			st.links = append(st.links, model.PayoutLessonLink{PayoutID: payoutID, LessonID: id, CreatedAt: at})
		}
	})
	return err
}

func (r memPayouts) ListLinks(_ context.Context, payoutID int64) ([]*model.PayoutLessonLink, error) {
	var out []*model.PayoutLessonLink
	r.with(func(st *memState) {
		for _, link := range st.links {
			if link.PayoutID == payoutID {
				link := link
				out = append(out, &link)
			}
		}
	})
	return out, nil
}
