package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"easywine/internal/pairing"
)

var (
	// ErrNothingToPair is returned when the form has no photo, text or category.
	ErrNothingToPair = errors.New("por favor, me dê uma dica: foto, texto ou categoria")
	// ErrBusy is returned while a request is already in flight.
	ErrBusy = errors.New("a request is already in flight")
	// ErrUnavailable wraps any transport or gateway failure.
	ErrUnavailable = errors.New("o Sommelier está indisponível no momento. Tente novamente")
	// ErrUnknownCategory is returned for ids outside pairing.Categories.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrSignedOut is returned when submitting without a display name.
	ErrSignedOut = errors.New("no display name set")
)

// View is the screen the app is showing.
type View int

const (
	ViewName View = iota
	ViewForm
	ViewResult
)

func (v View) String() string {
	switch v {
	case ViewName:
		return "name"
	case ViewForm:
		return "form"
	case ViewResult:
		return "result"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// Form is the user's current input.
type Form struct {
	Image       string
	Ingredients string
	Category    string
}

// Empty reports whether the form has nothing to pair with.
func (f Form) Empty() bool {
	return f.Image == "" && f.Ingredients == "" && f.Category == ""
}

// App is the presentation state: session, form, in-flight flag and result.
type App struct {
	mu      sync.Mutex
	session *Session
	gateway Gateway
	form    Form
	result  *pairing.Result
	loading bool

	// OnBusy, when set, is called with true before a request is sent and
	// with false once it completes.
	OnBusy func(busy bool)
}

// NewApp creates a new App.
func NewApp(session *Session, gateway Gateway) *App {
	return &App{session: session, gateway: gateway}
}

// Session returns the app's session.
func (a *App) Session() *Session {
	return a.session
}

// View returns the screen to show.
func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case !a.session.SignedIn():
		return ViewName
	case a.result != nil:
		return ViewResult
	default:
		return ViewForm
	}
}

// Form returns a snapshot of the current input.
func (a *App) Form() Form {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.form
}

// Result returns the last pairing, or nil.
func (a *App) Result() *pairing.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// Loading reports whether a request is in flight.
func (a *App) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// CanSubmit reports whether the submit action is enabled.
func (a *App) CanSubmit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.loading && !a.form.Empty()
}

// SetIngredients replaces the free-text description.
func (a *App) SetIngredients(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.form.Ingredients = text
}

// SetImage sets the photo as a data URL.
func (a *App) SetImage(dataURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.form.Image = dataURL
}

// ClearImage removes the photo.
func (a *App) ClearImage() {
	a.SetImage("")
}

// LoadImageFile reads a photo from disk and sets it as a data URL.
func (a *App) LoadImageFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}
	a.SetImage(DataURL(data))
	return nil
}

// DataURL encodes data as a base64 data URL with a sniffed content type.
func DataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ToggleCategory selects id, or clears the selection if id is already selected.
func (a *App) ToggleCategory(id string) error {
	if _, ok := pairing.FindCategory(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.form.Category == id {
		a.form.Category = ""
	} else {
		a.form.Category = id
	}
	return nil
}

// Request builds the gateway request from the current state. The category
// is sent by label.
func (a *App) Request() pairing.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requestLocked()
}

func (a *App) requestLocked() pairing.Request {
	req := pairing.Request{
		Image:       a.form.Image,
		Ingredients: a.form.Ingredients,
		UserName:    a.session.Name(),
	}
	if c, ok := pairing.FindCategory(a.form.Category); ok {
		req.Category = c.Label
	}
	return req
}

// Submit sends the current form to the gateway. On success the app shows
// the result; on failure the form is left as it was.
func (a *App) Submit(ctx context.Context) error {
	a.mu.Lock()
	if !a.session.SignedIn() {
		a.mu.Unlock()
		return ErrSignedOut
	}
	if a.form.Empty() {
		a.mu.Unlock()
		return ErrNothingToPair
	}
	if a.loading {
		a.mu.Unlock()
		return ErrBusy
	}
	a.loading = true
	a.result = nil
	req := a.requestLocked()
	a.mu.Unlock()

	a.busy(true)
	result, err := a.gateway.Harmonize(ctx, req)
	a.busy(false)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = false
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	a.result = result
	return nil
}

func (a *App) busy(b bool) {
	if a.OnBusy != nil {
		a.OnBusy(b)
	}
}

// Reset clears the input and the result, returning to the form.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.form = Form{}
	a.result = nil
}

// Logout asks confirm and, if accepted, clears the persisted name and the
// last result. It reports whether the user logged out.
func (a *App) Logout(confirm func(name string) bool) (bool, error) {
	name := a.session.Name()
	if confirm != nil && !confirm(name) {
		return false, nil
	}
	if err := a.session.SignOut(); err != nil {
		return false, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result = nil
	return true, nil
}
