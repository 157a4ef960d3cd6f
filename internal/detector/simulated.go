package detector

import "context"

// Simulated sources back demo mode and tests the way memory stores back
// the persistence layers. Set Err to make a source fail.

// SimulatedPositions serves a fixed position list.
type SimulatedPositions struct {
	Items []Position
	Err   error
}

func (s *SimulatedPositions) Positions(ctx context.Context, subject string) ([]Position, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Items, nil
}

// SimulatedApprovals serves a fixed approval list.
type SimulatedApprovals struct {
	Items []Approval
	Err   error
}

func (s *SimulatedApprovals) Approvals(ctx context.Context, subject string) ([]Approval, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Items, nil
}

// SimulatedActivity serves fixed activity findings.
type SimulatedActivity struct {
	Items []ActivityFinding
	Err   error
}

func (s *SimulatedActivity) Findings(ctx context.Context, subject string) ([]ActivityFinding, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Items, nil
}
