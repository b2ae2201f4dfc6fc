package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/volley-tournament/models"
)

// MemoryStore keeps every repository in process memory. Transactions are serialized and
// roll back to a snapshot when fn fails. The executor argument of each method is ignored.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data memoryData
	now  func() time.Time
}

type memoryData struct {
	lastTournamentID  int
	lastMatchID       int
	lastJoinRequestID int
	tournaments       map[int]*models.Tournament
	matches           map[int]*models.Match
	teams             map[int]*models.Team
	joinRequests      map[int]*models.JoinRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: memoryData{
			tournaments:  make(map[int]*models.Tournament),
			matches:      make(map[int]*models.Match),
			teams:        make(map[int]*models.Team),
			joinRequests: make(map[int]*models.JoinRequest),
		},
		now: time.Now,
	}
}

func (s *MemoryStore) Tournaments() TournamentRepository { return &memoryTournamentRepository{s: s} }
func (s *MemoryStore) Matches() MatchRepository { return &memoryMatchRepository{s: s} }
func (s *MemoryStore) Teams() TeamRepository { return &memoryTeamRepository{s: s} }
func (s *MemoryStore) JoinRequests() JoinRequestRepository { return &memoryJoinRequestRepository{s: s} }

// PutTeam inserts or replaces a team. Teams are owned elsewhere, so this is the only way in.
func (s *MemoryStore) PutTeam(team *models.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *team
	c.PlayerIDs = append([]int(nil), team.PlayerIDs...)
	s.data.teams[team.ID] = &c
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	restore := func() {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = fn(ctx, nil); err != nil {
		restore()
		return err
	}
	return nil
}

func (d *memoryData) clone() memoryData {
	c := memoryData{
		lastTournamentID:  d.lastTournamentID,
		lastMatchID:       d.lastMatchID,
		lastJoinRequestID: d.lastJoinRequestID,
		tournaments:       make(map[int]*models.Tournament, len(d.tournaments)),
		matches:           make(map[int]*models.Match, len(d.matches)),
		teams:             make(map[int]*models.Team, len(d.teams)),
		joinRequests:      make(map[int]*models.JoinRequest, len(d.joinRequests)),
	}
	for id, t := range d.tournaments {
		c.tournaments[id] = t.Clone()
	}
	for id, m := range d.matches {
		c.matches[id] = m.Clone()
	}
	for id, t := range d.teams {
		tc := *t
		tc.PlayerIDs = append([]int(nil), t.PlayerIDs...)
		c.teams[id] = &tc
	}
	for id, jr := range d.joinRequests {
		c.joinRequests[id] = cloneJoinRequest(jr)
	}
	return c
}

func cloneJoinRequest(jr *models.JoinRequest) *models.JoinRequest {
	c := *jr
	if jr.HandledAt != nil {
		t := *jr.HandledAt
		c.HandledAt = &t
	}
	return &c
}

type memoryTournamentRepository struct{ s *MemoryStore }

func (r *memoryTournamentRepository) Create(_ context.Context, _ SQLExecutor, t *models.Tournament) error {
	if len(t.OrganizerIDs) == 0 {
		return ErrTournamentNoOrganizers
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.lastTournamentID++
	now := r.s.now()
	t.ID = r.s.data.lastTournamentID
	t.CreatedAt, t.UpdatedAt = now, now
	t.TeamIDs = []int{}
	t.Structure = models.Structure{}
	r.s.data.tournaments[t.ID] = t.Clone()
	return nil
}

func (r *memoryTournamentRepository) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.data.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return t.Clone(), nil
}

func (r *memoryTournamentRepository) LockByID(ctx context.Context, exec SQLExecutor, id int, _ LockMode) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memoryTournamentRepository) AddTeam(_ context.Context, _ SQLExecutor, tournamentID, teamID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[tournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	if _, ok := r.s.data.teams[teamID]; !ok {
		return ErrTournamentInvalidTeam
	}
	if t.HasTeam(teamID) {
		return ErrTournamentTeamExists
	}
	t.TeamIDs = append(t.TeamIDs, teamID)
	return nil
}

func (r *memoryTournamentRepository) UpdateStructure(_ context.Context, _ SQLExecutor, tournamentID int, structure models.Structure) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[tournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	t.Structure = structure.Clone()
	t.UpdatedAt = r.s.now()
	return nil
}

type memoryMatchRepository struct{ s *MemoryStore }

func (r *memoryMatchRepository) Create(_ context.Context, _ SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if m.Kind == models.MatchKindTournament {
		if m.Bracket == nil {
			return ErrMatchTournamentInvalid
		}
		if _, ok := r.s.data.tournaments[m.Bracket.TournamentID]; !ok {
			return ErrMatchTournamentInvalid
		}
		if m.Bracket.NextMatchID != nil {
			if _, ok := r.s.data.matches[*m.Bracket.NextMatchID]; !ok {
				return ErrMatchNextInvalid
			}
		}
	}

	r.s.data.lastMatchID++
	now := r.s.now()
	m.ID = r.s.data.lastMatchID
	m.CreatedAt, m.UpdatedAt = now, now
	r.s.data.matches[m.ID] = m.Clone()
	return nil
}

func (r *memoryMatchRepository) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.data.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (r *memoryMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memoryMatchRepository) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.Match, error) {
	matches := r.filter(func(m *models.Match) bool {
		return m.Bracket != nil && m.Bracket.TournamentID == tournamentID
	})
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].Bracket, matches[j].Bracket
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.MatchNumber != b.MatchNumber {
			return a.MatchNumber < b.MatchNumber
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func (r *memoryMatchRepository) ListFeeders(_ context.Context, _ SQLExecutor, nextMatchID int) ([]*models.Match, error) {
	matches := r.filter(func(m *models.Match) bool {
		return m.Bracket != nil && m.Bracket.NextMatchID != nil && *m.Bracket.NextMatchID == nextMatchID
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Bracket.MatchNumber != matches[j].Bracket.MatchNumber {
			return matches[i].Bracket.MatchNumber < matches[j].Bracket.MatchNumber
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func (r *memoryMatchRepository) filter(keep func(*models.Match) bool) []*models.Match {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matches := make([]*models.Match, 0)
	for _, m := range r.s.data.matches {
		if keep(m) {
			matches = append(matches, m.Clone())
		}
	}
	return matches
}

func (r *memoryMatchRepository) UpdateNextMatchInfo(_ context.Context, _ SQLExecutor, matchID int, nextMatchID *int, slot *models.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.data.matches[matchID]
	if !ok || m.Bracket == nil {
		return ErrMatchNotFound
	}
	if nextMatchID != nil {
		if _, ok := r.s.data.matches[*nextMatchID]; !ok {
			return ErrMatchNextInvalid
		}
		v := *nextMatchID
		m.Bracket.NextMatchID = &v
	} else {
		m.Bracket.NextMatchID = nil
	}
	if slot != nil && *slot != models.SlotNone {
		v := *slot
		m.Bracket.NextMatchSlot = &v
	} else {
		m.Bracket.NextMatchSlot = nil
	}
	m.UpdatedAt = r.s.now()
	return nil
}

func (r *memoryMatchRepository) UpdateState(_ context.Context, _ SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.matches[m.ID]
	if !ok {
		return ErrMatchNotFound
	}
	c := m.Clone()
	stored.TeamAID = c.TeamAID
	stored.TeamBID = c.TeamBID
	stored.WinnerID = c.WinnerID
	stored.Sets = c.Sets
	stored.ScoreA = c.ScoreA
	stored.ScoreB = c.ScoreB
	stored.Status = c.Status
	stored.UpdatedAt = r.s.now()
	m.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *memoryMatchRepository) DeleteByTournament(_ context.Context, _ SQLExecutor, tournamentID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	deleted := make(map[int]bool)
	for id, m := range r.s.data.matches {
		if m.Bracket != nil && m.Bracket.TournamentID == tournamentID {
			deleted[id] = true
			delete(r.s.data.matches, id)
		}
	}
	// ON DELETE SET NULL
	for _, m := range r.s.data.matches {
		if m.Bracket != nil && m.Bracket.NextMatchID != nil && deleted[*m.Bracket.NextMatchID] {
			m.Bracket.NextMatchID = nil
		}
	}
	return nil
}

type memoryTeamRepository struct{ s *MemoryStore }

func (r *memoryTeamRepository) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.data.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	c := *t
	c.PlayerIDs = append([]int(nil), t.PlayerIDs...)
	return &c, nil
}

type memoryJoinRequestRepository struct{ s *MemoryStore }

func (r *memoryJoinRequestRepository) Create(_ context.Context, _ SQLExecutor, jr *models.JoinRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.tournaments[jr.TournamentID]; !ok {
		return ErrTournamentNotFound
	}
	if _, ok := r.s.data.teams[jr.TeamID]; !ok {
		return ErrJoinRequestTeamInvalid
	}
	if jr.Status == models.JoinRequestPending {
		for _, existing := range r.s.data.joinRequests {
			if existing.TournamentID == jr.TournamentID && existing.TeamID == jr.TeamID && existing.Status == models.JoinRequestPending {
				return ErrJoinRequestPendingExists
			}
		}
	}
	r.s.data.lastJoinRequestID++
	jr.ID = r.s.data.lastJoinRequestID
	jr.RequestedAt = r.s.now()
	r.s.data.joinRequests[jr.ID] = cloneJoinRequest(jr)
	return nil
}

func (r *memoryJoinRequestRepository) FindPending(_ context.Context, _ SQLExecutor, tournamentID, teamID int) (*models.JoinRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, jr := range r.s.data.joinRequests {
		if jr.TournamentID == tournamentID && jr.TeamID == teamID && jr.Status == models.JoinRequestPending {
			return cloneJoinRequest(jr), nil
		}
	}
	return nil, ErrJoinRequestNotFound
}

func (r *memoryJoinRequestRepository) UpdateStatus(_ context.Context, _ SQLExecutor, id int, status models.JoinRequestStatus, handledAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	jr, ok := r.s.data.joinRequests[id]
	if !ok {
		return ErrJoinRequestNotFound
	}
	jr.Status = status
	jr.HandledAt = &handledAt
	return nil
}

func (r *memoryJoinRequestRepository) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.JoinRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	requests := make([]*models.JoinRequest, 0)
	for _, jr := range r.s.data.joinRequests {
		if jr.TournamentID == tournamentID {
			requests = append(requests, cloneJoinRequest(jr))
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })
	return requests, nil
}
