// Package capability определяет, может ли текущий хост записывать браузерные
// сессии, и классифицирует окружение.
package capability

type HostKind int

const (
	HostUnknown HostKind = iota
	HostLocal
	HostManagedCloud
	HostContainer
)

func (h HostKind) String() string {
	switch h {
	case HostLocal:
		return "local"
	case HostManagedCloud:
		return "managedCloud"
	case HostContainer:
		return "container"
	default:
		return "unknown"
	}
}

// Label возвращает название окружения для пользователя.
func (h HostKind) Label() string {
	switch h {
	case HostLocal:
		return "локальная разработка"
	case HostManagedCloud:
		return "облачная платформа"
	case HostContainer:
		return "контейнер"
	default:
		return "неизвестно"
	}
}

// Capabilities is computed once per request and passed by value.
type Capabilities struct {
	HasAutomationDriver bool     `json:"hasAutomationDriver"`
	HasBrowserEngine    bool     `json:"hasBrowserEngine"`
	HasMuxer            bool     `json:"hasMuxer"`
	Host                HostKind `json:"-"`
}

// CanRecord never depends on the muxer: muxing happens after the session.
func (c Capabilities) CanRecord() bool {
	return c.HasAutomationDriver && c.HasBrowserEngine
}

// Signals are the raw host markers read from the environment.
type Signals struct {
	ContainerMarker    bool
	ManagedCloudMarker bool
	DevMode            bool
}

type hostRule struct {
	kind  HostKind
	match func(Signals) bool
}

// hostRules is evaluated top to bottom; the first match wins.
var hostRules = []hostRule{
	{HostContainer, func(s Signals) bool { return s.ContainerMarker }},
	{HostManagedCloud, func(s Signals) bool { return s.ManagedCloudMarker }},
	{HostLocal, func(s Signals) bool { return s.DevMode }},
}

func ClassifyHost(s Signals) HostKind {
	for _, rule := range hostRules {
		if rule.match(s) {
			return rule.kind
		}
	}
	return HostUnknown
}

// Report is the environment check as shown to users.
type Report struct {
	Environment         string `json:"environment"`
	Host                string `json:"host"`
	HasAutomationDriver bool   `json:"hasAutomationDriver"`
	HasBrowserEngine    bool   `json:"hasBrowserEngine"`
	HasMuxer            bool   `json:"hasMuxer"`
	CanRecord           bool   `json:"canRecord"`
}

func (c Capabilities) Report() Report {
	return Report{
		Environment:         c.Host.Label(),
		Host:                c.Host.String(),
		HasAutomationDriver: c.HasAutomationDriver,
		HasBrowserEngine:    c.HasBrowserEngine,
		HasMuxer:            c.HasMuxer,
		CanRecord:           c.CanRecord(),
	}
}
