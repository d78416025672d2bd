package fallback

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/clubsync/go-club-client/users"
)

// Respond answers a request from the synthetic dataset. List endpoints keep
// the live service's {items, total} envelope and mutating endpoints echo the
// submitted payload with a generated identifier, so callers need no
// branching logic between live and fallback mode.
func (r *Responder) Respond(method, path string, body []byte) ([]byte, error) {
	if strings.Contains(path, "/auth/login") || strings.Contains(path, "/auth/refresh") {
		return json.Marshal(map[string]any{
			"access_token":  "fallback-token",
			"refresh_token": "fallback-refresh",
			"token_type":    "bearer",
		})
	}
	switch method {
	case http.MethodGet:
		return r.respondGet(path)
	case http.MethodPost:
		return r.respondMutation(body, true)
	case http.MethodPut, http.MethodPatch:
		return r.respondMutation(body, false)
	case http.MethodDelete:
		return json.Marshal(map[string]any{"success": true})
	default:
		return json.Marshal(map[string]any{})
	}
}

func (r *Responder) respondGet(path string) ([]byte, error) {
	collection := func(items []any) ([]byte, error) {
		return json.Marshal(map[string]any{"items": items, "total": len(items)})
	}
	switch {
	case strings.Contains(path, "/teams"):
		return collection(syntheticTeams)
	case strings.Contains(path, "/players"):
		return collection(syntheticPlayers)
	case strings.Contains(path, "/games"):
		return collection(syntheticGames)
	case strings.Contains(path, "/events"):
		return collection(syntheticEvents)
	case strings.Contains(path, "/news"):
		return collection(syntheticNews)
	case strings.Contains(path, "/auth/me"):
		return json.Marshal(syntheticUser)
	default:
		return json.Marshal(map[string]any{})
	}
}

func (r *Responder) respondMutation(body []byte, withID bool) ([]byte, error) {
	echo := map[string]any{}
	if len(body) > 0 {
		// Non-JSON bodies are acknowledged without an echo.
		_ = json.Unmarshal(body, &echo)
	}
	echo["success"] = true
	if withID {
		echo["id"] = uuid.NewString()
	}
	return json.Marshal(echo)
}

// SyntheticUser returns the profile the fallback dataset reports for
// /auth/me.
func (r *Responder) SyntheticUser() *users.User {
	u := syntheticUser
	return &u
}

var syntheticUser = users.User{
	ID:        1,
	Email:     "admin@handball.de",
	FirstName: "Max",
	LastName:  "Admin",
	Role:      users.RoleAdmin,
	Phone:     "+49 123 456789",
	IsActive:  true,
}

var syntheticTeams = []any{
	map[string]any{
		"id": 1, "name": "1. Herren", "description": "Männermannschaft erste Liga",
		"age_group": "Erwachsene", "player_count": 18, "coach_name": "Thomas Trainer",
	},
	map[string]any{
		"id": 2, "name": "U14 männlich", "description": "Jugendmannschaft U14",
		"age_group": "U14", "player_count": 14, "coach_name": "Max Admin",
	},
	map[string]any{
		"id": 3, "name": "U16 weiblich", "description": "Mädchenmannschaft U16",
		"age_group": "U16", "player_count": 12, "coach_name": "Anna Betreuer",
	},
}

var syntheticPlayers = []any{
	map[string]any{
		"id": 1, "team_id": 1, "jersey_number": 7, "position": "left_back",
		"games_played": 15, "goals_scored": 42,
		"user": map[string]any{"id": 3, "first_name": "Lukas", "last_name": "Müller", "role": "player"},
	},
	map[string]any{
		"id": 2, "team_id": 1, "jersey_number": 10, "position": "center_back",
		"games_played": 15, "goals_scored": 28,
		"user": map[string]any{"id": 5, "first_name": "Julian", "last_name": "Weber", "role": "player"},
	},
	map[string]any{
		"id": 3, "team_id": 1, "jersey_number": 1, "position": "goalkeeper",
		"games_played": 15, "goals_scored": 0,
		"user": map[string]any{"id": 6, "first_name": "Felix", "last_name": "Koch", "role": "player"},
	},
	map[string]any{
		"id": 4, "team_id": 3, "jersey_number": 8, "position": "left_wing",
		"games_played": 12, "goals_scored": 35,
		"user": map[string]any{"id": 7, "first_name": "Lisa", "last_name": "Meyer", "role": "player"},
	},
	map[string]any{
		"id": 5, "team_id": 3, "jersey_number": 9, "position": "right_wing",
		"games_played": 12, "goals_scored": 31,
		"user": map[string]any{"id": 8, "first_name": "Lena", "last_name": "Fischer", "role": "player"},
	},
}

var syntheticGames = []any{
	map[string]any{
		"id": 1, "team_id": 1, "team_name": "1. Herren", "opponent": "TSV Hamburg",
		"scheduled_at": "2024-02-20T19:00:00Z", "location": "Sporthalle Mitte, Hamburg",
		"home_score": 28, "away_score": 24, "status": "completed",
	},
	map[string]any{
		"id": 2, "team_id": 1, "team_name": "1. Herren", "opponent": "VfL Berlin",
		"scheduled_at": "2024-02-27T19:00:00Z", "location": "Sporthalle Ost, Berlin",
		"status": "scheduled",
	},
	map[string]any{
		"id": 3, "team_id": 3, "team_name": "U16 weiblich", "opponent": "SG Leipzig",
		"scheduled_at": "2024-02-18T16:00:00Z", "location": "Jugendsporthalle Leipzig",
		"status": "scheduled",
	},
}

var syntheticEvents = []any{
	map[string]any{
		"id": 1, "title": "Mannschaftstraining", "description": "Reguläres Training",
		"start_time": "2024-02-18T18:00:00Z", "end_time": "2024-02-18T20:00:00Z",
		"location": "Sporthalle Mitte", "event_type": "training", "team_id": 1,
	},
	map[string]any{
		"id": 2, "title": "Vereinsversammlung", "description": "Jährliche Mitgliederversammlung",
		"start_time": "2024-02-22T19:00:00Z", "end_time": "2024-02-22T21:00:00Z",
		"location": "Vereinsheim", "event_type": "meeting",
	},
	map[string]any{
		"id": 3, "title": "Jugendturnier", "description": "Internationales Jugendhandballturnier",
		"start_time": "2024-03-02T09:00:00Z", "end_time": "2024-03-03T18:00:00Z",
		"location": "Sportpark Hamburg", "event_type": "tournament", "team_id": 3,
	},
}

var syntheticNews = []any{
	map[string]any{
		"id": 1, "title": "Sieg gegen TSV Hamburg",
		"content":     "Unsere erste Herren gewinnt das Heimspiel gegen den TSV Hamburg mit 28:24.",
		"team_id":     1,
		"author_name": "Thomas Trainer",
	},
	map[string]any{
		"id": 2, "title": "Neue Trainingszeiten",
		"content":     "Ab nächster Woche trainieren wir Dienstags und Donnerstags von 18:00 bis 20:00 Uhr.",
		"author_name": "Max Admin",
	},
}
