/*
memory.go - In-memory leave store

PURPOSE:
  Map-backed implementation of leave.Store and leave.UsageSource for
  tests and local development. Everything a test needs to stage a
  scenario is here: seed employees, add usage rows, or flip the usage
  source into an unavailable state.

CONCURRENCY:
  One RWMutex guards all maps. All reads return copies so callers can
  never mutate stored state through a returned value.
*/
package memory

import (
	"context"
	"sync"

	"github.com/warp/leave-engine/leave"
)

type usageEntry struct {
	from leave.Date
	to   leave.Date
	days leave.Days
}

// Memory implements leave.Store and leave.UsageSource.
type Memory struct {
	mu               sync.RWMutex
	employees        map[leave.EmployeeID]leave.Employee
	employeeOrder    []leave.EmployeeID
	lots             map[leave.EmployeeID][]*leave.Lot
	lotIndex         map[string]*leave.Lot
	usage            map[leave.EmployeeID][]usageEntry
	usageUnavailable bool
}

func New() *Memory {
	return &Memory{
		employees: make(map[leave.EmployeeID]leave.Employee),
		lots:      make(map[leave.EmployeeID][]*leave.Lot),
		lotIndex:  make(map[string]*leave.Lot),
		usage:     make(map[leave.EmployeeID][]usageEntry),
	}
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	out := emp
	return &out, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.Employee, 0, len(m.employeeOrder))
	for _, id := range m.employeeOrder {
		out = append(out, m.employees[id])
	}
	return out, nil
}

func (m *Memory) SetBalance(_ context.Context, id leave.EmployeeID, balance leave.Days) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return &leave.NotFoundError{Kind: "employee", ID: string(id)}
	}
	emp.Balance = balance
	m.employees[id] = emp
	return nil
}

func (m *Memory) SetInitialGrantDate(_ context.Context, id leave.EmployeeID, d leave.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return &leave.NotFoundError{Kind: "employee", ID: string(id)}
	}
	emp.InitialGrantDate = &d
	m.employees[id] = emp
	return nil
}

func (m *Memory) SetAnnualGrantDate(_ context.Context, id leave.EmployeeID, d leave.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return &leave.NotFoundError{Kind: "employee", ID: string(id)}
	}
	emp.LatestAnnualGrantDate = &d
	m.employees[id] = emp
	return nil
}

// =============================================================================
// LOT STORE
// =============================================================================

func (m *Memory) AppendLot(_ context.Context, lot leave.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := lot
	m.lots[lot.EmployeeID] = append(m.lots[lot.EmployeeID], &stored)
	m.lotIndex[lot.ID] = &stored
	return nil
}

func (m *Memory) LotsByEmployee(_ context.Context, id leave.EmployeeID) ([]leave.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.Lot, 0, len(m.lots[id]))
	for _, lot := range m.lots[id] {
		out = append(out, *lot)
	}
	return out, nil
}

func (m *Memory) AllLots(_ context.Context) ([]leave.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Lot
	for _, id := range m.employeeOrder {
		for _, lot := range m.lots[id] {
			out = append(out, *lot)
		}
	}
	return out, nil
}

func (m *Memory) SetRemaining(_ context.Context, lotID string, remaining leave.Days) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lotIndex[lotID]
	if !ok {
		return &leave.NotFoundError{Kind: "lot", ID: lotID}
	}
	lot.RemainingDays = remaining
	return nil
}

// =============================================================================
// USAGE SOURCE
// =============================================================================

func (m *Memory) ApprovedLeaveDays(_ context.Context, id leave.EmployeeID, from, to leave.Date) (leave.Days, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.usageUnavailable {
		return leave.ZeroDays(), leave.ErrUsageUnavailable
	}
	total := leave.ZeroDays()
	for _, u := range m.usage[id] {
		if u.from.AfterOrEqual(from) && u.to.BeforeOrEqual(to) {
			total = total.Add(u.days)
		}
	}
	return total, nil
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// SaveEmployee inserts or replaces a roster row.
func (m *Memory) SaveEmployee(_ context.Context, emp leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.employees[emp.ID]; !exists {
		m.employeeOrder = append(m.employeeOrder, emp.ID)
	}
	m.employees[emp.ID] = emp
	return nil
}

// AddUsage records an approved leave span counted by ApprovedLeaveDays.
func (m *Memory) AddUsage(id leave.EmployeeID, from, to leave.Date, days leave.Days) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[id] = append(m.usage[id], usageEntry{from: from, to: to, days: days})
}

// SetUsageUnavailable makes ApprovedLeaveDays return ErrUsageUnavailable.
func (m *Memory) SetUsageUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usageUnavailable = unavailable
}
