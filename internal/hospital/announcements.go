package hospital

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultAnnouncementDescription = "Scheduled update"
	defaultAudience                = "Doctors"
)

// Announcement is a notice on the hospital board.
type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Audience    string    `json:"audience,omitempty"`
	Schedule    string    `json:"schedule,omitempty"`
	Timestamp   string    `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// AnnouncementForm is the publish input.
type AnnouncementForm struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Audience string `json:"audience"`
	Schedule string `json:"schedule"`
}

// DefaultAlerts seed every board.
func DefaultAlerts() []Announcement {
	return []Announcement{
		{ID: "n-1", Title: "New Tele-consult booking", Description: "Patient Kavin booked Dr. Meera for 2 PM slot", Timestamp: "2m ago"},
		{ID: "n-2", Title: "Lab update", Description: "Radiology uploaded MRI scans for patient Farhan", Timestamp: "20m ago"},
		{ID: "n-3", Title: "Surgery prep reminder", Description: "Team meeting for Dr. Kavya at 5 PM", Timestamp: "45m ago"},
	}
}

// NewAnnouncement builds an announcement from the form.
func NewAnnouncement(form AnnouncementForm, now time.Time) (Announcement, error) {
	title := strings.TrimSpace(form.Title)
	if title == "" {
		return Announcement{}, ErrTitleRequired
	}
	a := Announcement{
		ID:          uuid.NewString(),
		Title:       form.Title,
		Description: form.Message,
		Audience:    strings.TrimSpace(form.Audience),
		Schedule:    strings.TrimSpace(form.Schedule),
		Timestamp:   "Just now",
		CreatedAt:   now,
	}
	if a.Description == "" {
		a.Description = defaultAnnouncementDescription
	}
	if a.Audience == "" {
		a.Audience = defaultAudience
	}
	if a.Schedule != "" {
		a.Timestamp = "Scheduled · " + a.Schedule
	}
	return a, nil
}

// Board keeps each hospital's announcements in memory, newest first.
type Board struct {
	mu     sync.Mutex
	boards map[string][]Announcement
	now    func() time.Time
}

func NewBoard() *Board {
	return &Board{boards: make(map[string][]Announcement), now: time.Now}
}

// List returns the hospital's announcements, seeding the defaults on first
// access.
func (b *Board) List(hospitalID string) []Announcement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Announcement(nil), b.load(hospitalID)...)
}

// Publish prepends a new announcement. An empty title is rejected without
// touching the board.
func (b *Board) Publish(hospitalID string, form AnnouncementForm) (Announcement, error) {
	a, err := NewAnnouncement(form, b.now())
	if err != nil {
		return Announcement{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	current := b.load(hospitalID)
	next := make([]Announcement, 0, len(current)+1)
	next = append(next, a)
	next = append(next, current...)
	b.boards[hospitalID] = next
	return a, nil
}

func (b *Board) load(hospitalID string) []Announcement {
	list, ok := b.boards[hospitalID]
	if !ok {
		list = DefaultAlerts()
		b.boards[hospitalID] = list
	}
	return list
}
