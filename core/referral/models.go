package referral

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Node is one user of a referral tree, as supplied by the driving-school API.
// Level is the business tier (niveau) assigned upstream; it is independent of the node's depth.
type Node struct {
	ID        int     `json:"id"`
	FirstName string  `json:"prenom"`
	LastName  string  `json:"nom"`
	Level     int     `json:"niveau"`
	Children  []*Node `json:"enfants"`
}

func (n *Node) HasChildren() bool { return n != nil && len(n.Children) > 0 }

func (n *Node) FullName() string {
	return strings.TrimSpace(n.FirstName + " " + n.LastName)
}

// Initials returns the upper-cased first letters of the first & last names.
func (n *Node) Initials() string {
	return strings.ToUpper(firstRune(n.FirstName) + firstRune(n.LastName))
}

func firstRune(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}

// Stats are the aggregate statistics of a referral tree. Recomputed on each load.
type Stats struct {
	TotalMembers int `json:"total_membres"`
	MaxLevel     int `json:"niveau_max"`
}

// LevelLabel is the display label of a referral level.
func LevelLabel(level int) string {
	switch level {
	case -1:
		return "Nouveau membre"
	case 3:
		return "Niveau 3 (VIP)"
	default:
		return fmt.Sprintf("Niveau %d", level)
	}
}

type (
	// Filleul is a user directly referred by the current user.
	Filleul struct {
		ID             int     `json:"id"`
		LastName       string  `json:"nom"`
		FirstName      string  `json:"prenom"`
		Phone          string  `json:"telephone,omitempty"`
		Level          int     `json:"niveau"`
		LevelLabel     string  `json:"niveau_label,omitempty"`
		HasDeposited   bool    `json:"a_fait_depot"`
		DepositDate    *string `json:"date_depot,omitempty"`
		RegisteredAt   string  `json:"date_inscription"`
		ReferralsCount *int    `json:"nombre_filleuls,omitempty"`
	}

	LevelExplanation struct {
		Level     int    `json:"niveau"`
		Condition string `json:"condition"`
		Advantage string `json:"avantage"`
	}

	NextLevelAdvantages struct {
		TargetLevel int    `json:"niveau_cible"`
		Condition   string `json:"condition"`
		Advantage   string `json:"avantage"`
	}

	SystemExplanation struct {
		Intro     string             `json:"intro"`
		Levels    []LevelExplanation `json:"niveaux"`
		Important []string           `json:"important"`
	}

	// Info is the referral program summary of the current user.
	Info struct {
		CurrentLevel  int                  `json:"niveau_actuel"`
		Code          string               `json:"code_parrainage"`
		Filleuls      []Filleul            `json:"filleuls"`
		FilleulsCount int                  `json:"nombre_filleuls"`
		NextLevel     *NextLevelAdvantages `json:"avantages_niveau_suivant,omitempty"`
		Explanation   SystemExplanation    `json:"explication_systeme"`
	}
)

// Label returns the upstream label when set, the computed one otherwise.
func (f Filleul) Label() string {
	if f.LevelLabel != "" {
		return f.LevelLabel
	}
	return LevelLabel(f.Level)
}
