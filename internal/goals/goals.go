// Package goals decides whether a campaign still needs leads this month.
package goals

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"dco-creatives/internal/model"
	"dco-creatives/internal/store"
)

type LeadCounter interface {
	CountLeads(ctx context.Context, crm string, from, to time.Time) (int64, error)
}

// StoreCounter counts lead records in the record store.
type StoreCounter struct {
	Store store.Store
}

func (c StoreCounter) CountLeads(ctx context.Context, crm string, from, to time.Time) (int64, error) {
	res := c.Store.Count(ctx, model.TableLeads, sq.And{
		sq.Eq{"crm": crm},
		sq.GtOrEq{"created": from},
		sq.LtOrEq{"created": to},
	})
	if !res.Success {
		return 0, fmt.Errorf("count leads %s: %s", crm, res.Message)
	}
	return res.Count, nil
}

type Result struct {
	Availability model.Availability
	Goal         model.GoalType
}

type Evaluator struct {
	counter LeadCounter
	loc     *time.Location
	now     func() time.Time
}

func NewEvaluator(counter LeadCounter, loc *time.Location) *Evaluator {
	return &Evaluator{counter: counter, loc: loc, now: time.Now}
}

// ParseGoal reads the leading integer of a sheet cell, so "120 leads"
// and "120.5" both mean 120.
func ParseGoal(s string) (int64, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("goal %q is not a number", s)
	}
	return n, nil
}

// Evaluate counts today's and this month's leads for crm and applies Decide.
func (e *Evaluator) Evaluate(ctx context.Context, crm string, monthlyGoal int64) (Result, error) {
	now := e.now().In(e.loc)
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, e.loc)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Millisecond)
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, e.loc)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Millisecond)

	today, err := e.counter.CountLeads(ctx, crm, dayStart, dayEnd)
	if err != nil {
		return Result{}, err
	}
	month, err := e.counter.CountLeads(ctx, crm, monthStart, monthEnd)
	if err != nil {
		return Result{}, err
	}
	return Decide(monthlyGoal, today, month, DaysLeft(now, monthEnd)), nil
}

// DaysLeft is the number of started days between now and the end of month.
func DaysLeft(now, monthEnd time.Time) int64 {
	return int64(math.Ceil(monthEnd.Sub(now).Hours() / 24))
}

// Decide spreads the remaining monthly goal over the days left. Reaching
// the monthly goal takes the product out of stock; reaching today's share
// keeps it in stock on the daily goal.
func Decide(monthlyGoal, today, month, daysLeft int64) Result {
	var daily int64
	if daysLeft > 0 {
		daily = int64(math.Ceil(float64(monthlyGoal-month) / float64(daysLeft)))
	}
	switch {
	case month >= monthlyGoal:
		return Result{Availability: model.OutOfStock, Goal: model.GoalMonthly}
	case today >= daily:
		return Result{Availability: model.InStock, Goal: model.GoalDaily}
	default:
		return Result{Availability: model.InStock, Goal: model.GoalMonthly}
	}
}
