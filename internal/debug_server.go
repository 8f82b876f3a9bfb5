package internal

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

const DefaultInspectLimit = 50

type InspectRow struct {
	Key       string
	Timestamp string
	UserName  string
	Message   string
	Size      int
}

type StatsProvider func() map[string]any

type PageData struct {
	Room  string
	Rooms []string
	Items []InspectRow
	Stats map[string]any
}

// NewDebugServer serves the history inspector and the relay stats on port.
// The caller owns the returned server (ListenAndServe, Shutdown).
func NewDebugServer(port int, histories repositories.HistoryRepository, statsProvider StatsProvider) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           NewDebugMux(histories, statsProvider),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewDebugMux routes /inspect?room=<name>&limit=<n> and /stats.
func NewDebugMux(histories repositories.HistoryRepository, statsProvider StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if statsProvider == nil {
		statsProvider = func() map[string]any { return map[string]any{} }
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		room := r.URL.Query().Get("room")
		if room == "" {
			room = domain.DefaultRoom
		}
		limit := DefaultInspectLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		rooms, err := histories.Rooms()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		entries, err := histories.ForRoom(room).List(r.Context(), contract.ListOptions{Reverse: true, Limit: limit})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data := PageData{
			Room:  room,
			Rooms: rooms,
			Items: lo.Map(entries, func(entry contract.HistoryEntry, _ int) InspectRow { return HistoryMapper(entry) }),
			Stats: statsProvider(),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statsProvider())
	})

	return mux
}

// HistoryMapper turns a stored entry into an inspector row. Unreadable values
// are still listed, flagged in the message column.
func HistoryMapper(entry contract.HistoryEntry) InspectRow {
	row := InspectRow{
		Key:       entry.Key,
		Timestamp: "--:--:--",
		UserName:  "-",
		Size:      len(entry.Value),
	}
	if t, err := runtime.KeyTime(entry.Key); err == nil {
		row.Timestamp = t.Format("2006-01-02 15:04:05.000")
	}
	message, err := domain.ParseChatMessage(entry.Value)
	if err != nil {
		row.Message = "unreadable: " + err.Error()
		return row
	}
	row.UserName = message.UserName
	row.Message = message.Content()
	return row
}

// StatsMap exposes a monitoring snapshot to the inspector page.
func StatsMap(stats any) map[string]any {
	payload, err := json.Marshal(stats)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	result := make(map[string]any)
	if err := json.Unmarshal(payload, &result); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}
