package users

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	contractx "github.com/remitai/agentcore/agent/contract"
)

// matchThreshold mirrors the 0-100 similarity cutoff of the original
// directory: anything below it is noise, not a candidate.
const matchThreshold = 60

type Relationship struct {
	RelatedUserID int64
	Relation      string
	Type          string
}

type User struct {
	ID            int64
	Name          string
	Country       string
	Wallet        string
	Currency      string
	Tags          []string
	Relationships []Relationship
}

// Directory is the mock user database. In production this would be backed
// by the user service; the agent core only needs lookup and fuzzy search.
type Directory struct {
	users []User
}

func NewDirectory() *Directory {
	return &Directory{users: mockUsers()}
}

func mockUsers() []User {
	return []User{
		{
			ID: 1, Name: "Dipisha Kalura", Country: "Finland",
			Wallet: "addr_test1qz8w9...", Currency: "EUR",
			Tags: []string{"Family", "Priority"},
		},
		{
			ID: 2, Name: "Rahul Sharma", Country: "India",
			Wallet: "addr_test1qx7y8...", Currency: "INR",
			Tags: []string{"Business"},
		},
		{
			ID: 99, Name: "Current User", Country: "USA",
			Wallet: "addr_test1_sender...", Currency: "USD",
			Relationships: []Relationship{
				{RelatedUserID: 1, Relation: "sister", Type: "family"},
				{RelatedUserID: 2, Relation: "contractor", Type: "business"},
			},
		},
	}
}

func (d *Directory) GetByID(id int64) (User, bool) {
	for _, u := range d.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// SearchByName fuzzy-matches the global directory by user name.
func (d *Directory) SearchByName(name string) []contractx.Payee {
	query := strings.TrimSpace(name)
	if query == "" {
		return nil
	}

	var results []contractx.Payee
	for _, u := range d.users {
		s := similarity(query, u.Name)
		if s < matchThreshold {
			continue
		}
		p := toPayee(u)
		p.MatchScore = s
		results = append(results, p)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	return results
}

// SearchPayees resolves a user's saved contacts against a query term. The
// query may be a relation word ("sister", "contractor") or a name; relation
// matches win outright, name matches go through the same fuzzy scoring as
// the global search. Scoped to the given user's relationships only.
func (d *Directory) SearchPayees(userID int64, query string) []contractx.Payee {
	owner, ok := d.GetByID(userID)
	if !ok {
		return nil
	}
	term := strings.TrimSpace(query)
	if term == "" {
		return nil
	}

	var results []contractx.Payee
	for _, rel := range owner.Relationships {
		related, ok := d.GetByID(rel.RelatedUserID)
		if !ok {
			continue
		}

		s := similarity(term, related.Name)
		if strings.EqualFold(term, rel.Relation) || fuzzy.MatchNormalizedFold(term, rel.Relation) {
			s = 100
		}
		if s < matchThreshold {
			continue
		}

		p := toPayee(related)
		p.Relation = rel.Relation
		p.MatchScore = s
		results = append(results, p)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	return results
}

func toPayee(u User) contractx.Payee {
	return contractx.Payee{
		ID:       u.ID,
		Name:     u.Name,
		Country:  u.Country,
		Wallet:   u.Wallet,
		Currency: u.Currency,
	}
}

// similarity maps a fuzzy rank onto the 0-100 scale the threshold expects.
// Exact and substring folds score 100; subsequence matches degrade with
// Levenshtein distance; non-matches score 0.
func similarity(query, target string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(strings.TrimSpace(target))
	if q == "" || t == "" {
		return 0
	}
	if q == t || strings.Contains(t, q) {
		return 100
	}

	rank := fuzzy.RankMatchNormalizedFold(q, t)
	if rank < 0 {
		return 0
	}
	score := 100 - rank*5
	if score < 0 {
		score = 0
	}
	return score
}
