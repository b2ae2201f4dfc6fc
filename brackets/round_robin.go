package brackets

// Pairing - одна встреча круговой системы.
type Pairing struct {
	TeamAID int
	TeamBID int
}

// RoundRobinPairings returns one pairing per unordered pair of teams, keeping input order:
// (0,1), (0,2), ..., (1,2), ...
func RoundRobinPairings(teamIDs []int) []Pairing {
	n := len(teamIDs)
	pairings := make([]Pairing, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairings = append(pairings, Pairing{TeamAID: teamIDs[i], TeamBID: teamIDs[j]})
		}
	}
	return pairings
}
