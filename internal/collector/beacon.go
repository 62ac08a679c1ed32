package collector

import (
	"sync"

	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// maxBufferedResources bounds the resource entries a BeaconSource keeps per
// page view.
const maxBufferedResources = 500

// Beacon is the payload the page's instrumentation script posts. Every field
// is optional.
type Beacon struct {
	NewPageView bool `json:"newPageView"`

	Page struct {
		URL      string `json:"url"`
		Referrer string `json:"referrer"`
		Title    string `json:"title"`
	} `json:"page"`

	UserAgent           string             `json:"userAgent"`
	DeviceMemory        *float64           `json:"deviceMemory,omitempty"`
	HardwareConcurrency *int               `json:"hardwareConcurrency,omitempty"`
	Connection          *vitals.Connection `json:"connection,omitempty"`
	Viewport            *vitals.Viewport   `json:"viewport,omitempty"`

	Navigation *NavigationTiming `json:"navigation,omitempty"`
	Paints     []PaintEntry      `json:"paints,omitempty"`
	Resources  []ResourceEntry   `json:"resources,omitempty"`

	LayoutShifts            []LayoutShift            `json:"layoutShifts,omitempty"`
	LargestContentfulPaints []LargestContentfulPaint `json:"largestContentfulPaints,omitempty"`
	FirstInputs             []FirstInput             `json:"firstInputs,omitempty"`
	Interactions            []Interaction            `json:"interactions,omitempty"`
}

// BeaconSource serves the Performance, Navigator and Window interfaces from
// the latest beacons of a page.
type BeaconSource struct {
	mu         sync.RWMutex
	url        string
	referrer   string
	title      string
	userAgent  string
	memory     *float64
	cores      *int
	connection *vitals.Connection
	viewport   *vitals.Viewport
	navigation *NavigationTiming
	paints     []PaintEntry
	resources  []ResourceEntry
}

func NewBeaconSource() *BeaconSource {
	return &BeaconSource{}
}

// Sources returns the collector sources backed by b.
func (b *BeaconSource) Sources() Sources {
	return Sources{Performance: b, Navigator: b, Window: b}
}

// Apply folds a beacon into the source and forwards its observer entries.
// A new page view clears previously buffered state first; with an observer
// present the turnover runs inside obs.BeginPageView.
func (b *BeaconSource) Apply(beacon Beacon, obs Observer) {
	update := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if beacon.NewPageView {
			b.resetLocked()
		}
		b.applyLocked(beacon)
	}

	if obs == nil {
		update()
		return
	}
	if beacon.NewPageView {
		obs.BeginPageView(update)
	} else {
		update()
	}

	for _, e := range beacon.LayoutShifts {
		obs.ObserveLayoutShift(e)
	}
	for _, e := range beacon.LargestContentfulPaints {
		obs.ObserveLargestContentfulPaint(e)
	}
	for _, e := range beacon.FirstInputs {
		obs.ObserveFirstInput(e)
	}
	for _, e := range beacon.Interactions {
		obs.ObserveInteraction(e)
	}
}

func (b *BeaconSource) applyLocked(beacon Beacon) {
	if beacon.Page.URL != "" {
		b.url = beacon.Page.URL
		b.referrer = beacon.Page.Referrer
		b.title = beacon.Page.Title
	}
	if beacon.UserAgent != "" {
		b.userAgent = beacon.UserAgent
	}
	if beacon.DeviceMemory != nil {
		b.memory = beacon.DeviceMemory
	}
	if beacon.HardwareConcurrency != nil {
		b.cores = beacon.HardwareConcurrency
	}
	if beacon.Connection != nil {
		b.connection = beacon.Connection
	}
	if beacon.Viewport != nil {
		b.viewport = beacon.Viewport
	}
	if beacon.Navigation != nil {
		b.navigation = beacon.Navigation
	}
	if len(beacon.Paints) > 0 {
		b.paints = append([]PaintEntry(nil), beacon.Paints...)
	}
	b.resources = append(b.resources, beacon.Resources...)
	if over := len(b.resources) - maxBufferedResources; over > 0 {
		b.resources = append([]ResourceEntry(nil), b.resources[over:]...)
	}
}

func (b *BeaconSource) resetLocked() {
	b.url, b.referrer, b.title, b.userAgent = "", "", "", ""
	b.memory = nil
	b.cores = nil
	b.connection = nil
	b.viewport = nil
	b.navigation = nil
	b.paints = nil
	b.resources = nil
}

func (b *BeaconSource) Navigation() (NavigationTiming, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.navigation == nil {
		return NavigationTiming{}, false
	}
	return *b.navigation, true
}

func (b *BeaconSource) Paints() []PaintEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]PaintEntry(nil), b.paints...)
}

func (b *BeaconSource) Resources() []ResourceEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]ResourceEntry(nil), b.resources...)
}

func (b *BeaconSource) UserAgent() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.userAgent
}

func (b *BeaconSource) DeviceMemory() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.memory == nil {
		return 0, false
	}
	return *b.memory, true
}

func (b *BeaconSource) HardwareConcurrency() (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.cores == nil {
		return 0, false
	}
	return *b.cores, true
}

func (b *BeaconSource) Connection() (vitals.Connection, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.connection == nil {
		return vitals.Connection{}, false
	}
	return *b.connection, true
}

func (b *BeaconSource) Location() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.url
}

func (b *BeaconSource) Referrer() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.referrer
}

func (b *BeaconSource) Title() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.title
}

func (b *BeaconSource) Viewport() (vitals.Viewport, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.viewport == nil {
		return vitals.Viewport{}, false
	}
	return *b.viewport, true
}
