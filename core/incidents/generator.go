package incidents

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/gofrs/uuid/v5"
)

// GeneratorStates are the labels the status page renders.
var GeneratorStates = []string{"operational", "degraded", "outage", "maintenance"}

var (
	generatorServices = []string{
		"api-gateway", "auth-service", "payments", "search", "notifications", "web-frontend", "database", "cdn",
	}
	generatorComponents = []string{
		"load-balancer", "primary-db", "replica-db", "cache", "queue", "worker-pool", "dns", "object-storage", "edge",
	}
	generatorTitles = map[string][]string{
		"operational": {"%s fully recovered", "%s operating normally", "%s back to normal"},
		"degraded":    {"Elevated error rates on %s", "Increased latency for %s", "%s partially degraded"},
		"outage":      {"%s unavailable", "Major outage affecting %s", "%s not responding"},
		"maintenance": {"Scheduled maintenance for %s", "%s upgrade in progress", "Planned maintenance window on %s"},
	}
	generatorDescriptions = map[string]string{
		"operational": "All checks for %s are passing again.",
		"degraded":    "Some requests to %s are slower than usual or failing intermittently.",
		"outage":      "Requests to %s are failing. Engineers are investigating.",
		"maintenance": "%s is undergoing planned work and may be briefly unavailable.",
	}
)

// Generator builds random but plausible incidents for demos.
type Generator struct {
	svc     *Service
	baseURL string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(svc *Service, seed uint64) *Generator {
	return &Generator{
		svc:     svc,
		baseURL: "https://status.example.com/incidents/",
		rnd:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Build returns a random create request ending in state. An empty state
// picks one at random.
func (g *Generator) Build(state string) (IncidentCreate, error) {
	state = strings.ToLower(strings.TrimSpace(state))
	if state != "" && !isGeneratorState(state) {
		verr := &ValidationError{}
		verr.add("Input should be "+quotedChoices(GeneratorStates), "enum", "query", "state")
		return IncidentCreate{}, verr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if state == "" {
		state = g.pick(GeneratorStates)
	}
	previous := state
	for previous == state {
		previous = g.pick(GeneratorStates)
	}
	service := g.pick(generatorServices)
	components := g.pickComponents(1 + g.rnd.IntN(3))
	slug, err := uuid.NewV4()
	if err != nil {
		return IncidentCreate{}, fmt.Errorf("incident slug: %w", err)
	}
	description := fmt.Sprintf(generatorDescriptions[state], service)
	return IncidentCreate{
		Service:       service,
		PreviousState: previous,
		CurrentState:  state,
		Incident: &IncidentDetailCreate{
			Title:       fmt.Sprintf(g.pick(generatorTitles[state]), service),
			Description: &description,
			Components:  components,
			URL:         g.baseURL + slug.String(),
		},
	}, nil
}

// Generate builds a random incident and creates it through the service.
func (g *Generator) Generate(ctx context.Context, state string) (IncidentView, error) {
	in, err := g.Build(state)
	if err != nil {
		return IncidentView{}, err
	}
	return g.svc.CreateIncident(ctx, in)
}

func (g *Generator) pick(items []string) string {
	return items[g.rnd.IntN(len(items))]
}

func (g *Generator) pickComponents(n int) []string {
	idx := g.rnd.Perm(len(generatorComponents))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, generatorComponents[i])
	}
	return out
}

func isGeneratorState(state string) bool {
	for _, s := range GeneratorStates {
		if s == state {
			return true
		}
	}
	return false
}
