// Package selection keeps one participant's highlighted opportunity or
// country consistent with the room's shared selection fields.
package selection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/immxrtalbeast/globe_rooms/internal/country"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/lib/debounce"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

// ClickWindow is the window in which repeated opportunity clicks collapse.
const ClickWindow = 100 * time.Millisecond

// Writer persists the shared selection fields of a room.
type Writer interface {
	UpdateSelection(ctx context.Context, roomCode string, sel domain.Selection) error
}

// Listener receives the reconciler's outputs. Calls are made without the
// reconciler's lock held.
type Listener interface {
	SelectionChanged(state State)
	FocusChanged(focus *domain.Opportunity)
	SelectionFailed(err error)
}

// View is everything the list panel and globe layer render.
type View struct {
	State   State                `json:"state"`
	Focused *domain.Opportunity  `json:"focused,omitempty"`
	Markers []domain.Opportunity `json:"markers"`
	Page    Page                 `json:"page"`
}

type pageKey struct {
	catalogSize int
	country     string
}

type Reconciler struct {
	roomCode string
	writer   Writer
	listener Listener
	log      *slog.Logger
	clicks   *debounce.Debouncer

	mu      sync.Mutex
	state   State
	catalog []domain.Opportunity
	known   domain.Selection
	page    int
	key     pageKey
}

func NewReconciler(roomCode string, writer Writer, listener Listener, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		roomCode: roomCode,
		writer:   writer,
		listener: listener,
		log:      log.With(slog.String("room_code", roomCode)),
		clicks:   debounce.New(ClickWindow),
		state:    All(),
		page:     1,
	}
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetCatalog replaces the catalog wholesale.
func (r *Reconciler) SetCatalog(ops []domain.Opportunity) {
	r.mu.Lock()
	r.catalog = append([]domain.Opportunity(nil), ops...)
	// coordinates received before the catalog arrived can be resolved now
	focus, changed := r.resolveKnownLocked()
	r.touchPageLocked()
	state := r.state
	r.mu.Unlock()

	if changed {
		r.notify(state, focus)
	}
}

// ClickOpportunity schedules a single focus on id. Clicks inside ClickWindow
// collapse to the last one.
func (r *Reconciler) ClickOpportunity(ctx context.Context, id string) {
	r.clicks.Call(func() {
		r.selectOpportunity(ctx, id)
	})
}

func (r *Reconciler) selectOpportunity(ctx context.Context, id string) {
	const op = "selection.reconciler.selectOpportunity"
	log := r.log.With(slog.String("op", op), slog.String("opportunity_id", id))

	r.mu.Lock()
	opp, ok := r.findLocked(id)
	if !ok {
		r.mu.Unlock()
		log.Warn("clicked opportunity is not in the catalog")
		return
	}
	r.state = Single(id)
	r.known = domain.Selection{Lat: domain.Float64(opp.Lat), Lng: domain.Float64(opp.Lng)}
	sel := r.known
	r.touchPageLocked()
	state := r.state
	r.mu.Unlock()

	r.notify(state, &opp)

	if err := r.writer.UpdateSelection(ctx, r.roomCode, sel); err != nil {
		log.Error("failed to write selection", sl.Err(err))
		if r.listener != nil {
			r.listener.SelectionFailed(&domain.BackendWriteError{Op: op, Control: "opportunity", Err: err})
		}
	}
}

// Back clears any focus and shows the full catalog.
func (r *Reconciler) Back(ctx context.Context) error {
	const op = "selection.reconciler.back"
	r.clicks.Cancel()

	r.mu.Lock()
	r.state = All()
	r.known = domain.Selection{}
	r.touchPageLocked()
	state := r.state
	r.mu.Unlock()

	r.notify(state, nil)
	return r.write(ctx, op, "back", domain.Selection{})
}

// PickCountry focuses every opportunity matching c.
func (r *Reconciler) PickCountry(ctx context.Context, c string) error {
	const op = "selection.reconciler.pickCountry"
	r.clicks.Cancel()

	r.mu.Lock()
	r.state = Country(c)
	r.known = domain.Selection{Country: domain.String(c)}
	r.touchPageLocked()
	state := r.state
	r.mu.Unlock()

	r.log.Debug("country focused", slog.String("op", op), slog.String("country", c), slog.String("canonical", country.Canonical(c)))
	r.notify(state, nil)
	return r.write(ctx, op, "country", domain.Selection{Country: domain.String(c)})
}

// Init adopts the selection stored on room without diffing, for a view that
// has just been entered.
func (r *Reconciler) Init(room *domain.Room) {
	r.mu.Lock()
	r.known = domain.Selection{}
	r.mu.Unlock()
	r.ApplyRemote(room)
}

// ApplyRemote reconciles an updated room row. Fields are compared against the
// last known values, so repeated or unrelated updates cause no transition.
// It reports whether the state changed.
func (r *Reconciler) ApplyRemote(room *domain.Room) bool {
	if room == nil {
		return false
	}
	next := room.Selection()

	r.mu.Lock()
	prev := r.known
	countryChanged := !domain.EqualString(prev.Country, next.Country)
	coordsChanged := !domain.EqualFloat(prev.Lat, next.Lat) || !domain.EqualFloat(prev.Lng, next.Lng)
	r.known = next
	if !countryChanged && !coordsChanged {
		r.mu.Unlock()
		return false
	}

	var focus *domain.Opportunity
	target := r.state
	switch {
	case next.IsEmpty():
		target = All()
	case countryChanged && next.Country != nil:
		target = Country(*next.Country)
	case coordsChanged && next.Country == nil && next.HasCoordinates():
		opp, ok := domain.Nearest(r.catalog, *next.Lat, *next.Lng)
		if !ok {
			r.mu.Unlock()
			r.log.Debug("remote coordinates match no opportunity",
				slog.Float64("lat", *next.Lat), slog.Float64("lng", *next.Lng))
			return false
		}
		target = Single(opp.ID)
		focus = &opp
	}

	if target == r.state {
		r.mu.Unlock()
		return false
	}
	r.state = target
	r.touchPageLocked()
	r.mu.Unlock()

	r.notify(target, focus)
	return true
}

// SetPage moves to page n of the visible set, clamped to the valid range.
func (r *Reconciler) SetPage(n int) PageInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	visible := Displayed(r.state, r.catalog)
	pages := (len(visible) + PageSize - 1) / PageSize
	r.page = clampPage(n, pages)
	return Paginate(visible, r.page).Info
}

func (r *Reconciler) Displayed() []domain.Opportunity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Displayed(r.state, r.catalog)
}

func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	visible := Displayed(r.state, r.catalog)
	view := View{
		State:   r.state,
		Markers: visible,
		Page:    Paginate(visible, r.page),
	}
	if r.state.Mode == ModeSingle && len(visible) == 1 {
		focused := visible[0]
		view.Focused = &focused
	}
	return view
}

// Close drops a pending click.
func (r *Reconciler) Close() {
	r.clicks.Cancel()
}

func (r *Reconciler) write(ctx context.Context, op, control string, sel domain.Selection) error {
	if err := r.writer.UpdateSelection(ctx, r.roomCode, sel); err != nil {
		r.log.Error("failed to write selection", slog.String("op", op), sl.Err(err))
		return &domain.BackendWriteError{Op: op, Control: control, Err: err}
	}
	return nil
}

func (r *Reconciler) notify(state State, focus *domain.Opportunity) {
	if r.listener == nil {
		return
	}
	r.listener.FocusChanged(focus)
	r.listener.SelectionChanged(state)
}

func (r *Reconciler) findLocked(id string) (domain.Opportunity, bool) {
	for _, o := range r.catalog {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Opportunity{}, false
}

func (r *Reconciler) resolveKnownLocked() (*domain.Opportunity, bool) {
	if r.state.Mode != ModeAll || r.known.Country != nil || !r.known.HasCoordinates() {
		return nil, false
	}
	opp, ok := domain.Nearest(r.catalog, *r.known.Lat, *r.known.Lng)
	if !ok {
		return nil, false
	}
	r.state = Single(opp.ID)
	return &opp, true
}

// touchPageLocked resets to the first page when the catalog size or the
// country focus changed.
func (r *Reconciler) touchPageLocked() {
	key := pageKey{catalogSize: len(r.catalog)}
	if r.state.Mode == ModeCountry {
		key.country = r.state.Country
	}
	if key != r.key {
		r.key = key
		r.page = 1
	}
}
