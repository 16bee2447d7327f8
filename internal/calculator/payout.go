package calculator

import "github.com/Evgenylogoped/Logoped-krd.ru-sub002/internal/model"

// PayoutBreakdown - итог по набору занятий для заявки на выплату
type PayoutBreakdown struct {
	LessonIDs       []int64
	TherapistShares int64 // сумма долей терапевта
	CashCollected   int64 // полная цена занятий, оплаченных терапевту наличными
	FinalAmount     int64
}

// LessonShare возвращает долю терапевта: снимок, иначе выручка * процент
func LessonShare(l *model.PayoutLesson) int64 {
	if l.TherapistShare != nil {
		return *l.TherapistShare
	}
	if l.Revenue != nil && l.Percent != nil {
		return PercentOf(*l.Revenue, *l.Percent)
	}
	return 0
}

// LessonFullPrice возвращает полную цену занятия по первому доступному источнику
func LessonFullPrice(l *model.PayoutLesson) int64 {
	switch {
	case l.NominalPrice != nil:
		return *l.NominalPrice
	case l.RevenueEntry != nil:
		return *l.RevenueEntry
	case l.TherapistShare != nil || l.LeaderShare != nil:
		var sum int64
		if l.TherapistShare != nil {
			sum += *l.TherapistShare
		}
		if l.LeaderShare != nil {
			sum += *l.LeaderShare
		}
		return sum
	case l.ContractRate != nil:
		return *l.ContractRate
	}
	return 0
}

// Payout считает сумму к выплате:
// сумма долей терапевта минус наличные, которые он уже получил от клиентов.
func Payout(lessons []*model.PayoutLesson) PayoutBreakdown {
	var b PayoutBreakdown
	b.LessonIDs = make([]int64, 0, len(lessons))

	for _, l := range lessons {
		b.LessonIDs = append(b.LessonIDs, l.LessonID)
		b.TherapistShares += LessonShare(l)
		if l.PaidBy == model.PayerTherapist {
			b.CashCollected += LessonFullPrice(l)
		}
	}

	b.FinalAmount = b.TherapistShares - b.CashCollected
	return b
}
