package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	knowledgex "github.com/Toni872/script9-sub002/agent/knowledge"
	leadx "github.com/Toni872/script9-sub002/agent/lead"
	quotex "github.com/Toni872/script9-sub002/agent/quote"
)

type fakeSearcher struct {
	results []knowledgex.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts ...knowledgex.SearchOption) ([]knowledgex.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type insertRecord struct {
	name, email, phone, notes string
}

type fakeLeads struct {
	err     error
	inserts []insertRecord
}

func (f *fakeLeads) Insert(ctx context.Context, name, email, phone, notes string) (*leadx.Lead, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserts = append(f.inserts, insertRecord{name: name, email: email, phone: phone, notes: notes})
	return &leadx.Lead{
		ID:     int64(len(f.inserts)),
		Name:   name,
		Email:  email,
		Phone:  phone,
		Notes:  notes,
		Source: leadx.SourceAgent,
		Status: leadx.StatusNew,
	}, nil
}

type panicCalculator struct{}

func (panicCalculator) Calculate(quotex.ServiceType, quotex.Complexity, string) (quotex.Quote, error) {
	panic("pricing table corrupted")
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestDispatcher(t *testing.T, searcher *fakeSearcher, leads *fakeLeads) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(searcher, quotex.NewCalculator(quotex.WithClock(fixedClock)), leads)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func decodeEnvelope(t *testing.T, payload string) map[string]any {
	t.Helper()

	var envelope map[string]any
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("dispatch returned invalid JSON %q: %v", payload, err)
	}
	return envelope
}

func TestDispatchUnknownTool(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, &fakeSearcher{}, &fakeLeads{})

	for _, name := range []string{"delete_database", "search", "", "calculate_quote2"} {
		envelope := decodeEnvelope(t, d.Dispatch(context.Background(), name, "{}"))
		msg, ok := envelope["error"].(string)
		if !ok {
			t.Fatalf("expected error envelope for tool %q, got %v", name, envelope)
		}
		if !strings.HasPrefix(msg, "Unknown tool") {
			t.Fatalf("unexpected error message for tool %q: %s", name, msg)
		}
	}
}

func TestDispatchMalformedArguments(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, &fakeSearcher{}, &fakeLeads{})

	envelope := decodeEnvelope(t, d.Dispatch(context.Background(), ToolSearchKnowledge, "{not json"))
	if _, ok := envelope["error"]; !ok {
		t.Fatalf("expected error envelope, got %v", envelope)
	}
}

func TestDispatchSearchKnowledge(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: []knowledgex.Result{
		{
			Document:   knowledgex.Document{ID: "d1", Content: "Desarrollamos chatbots a medida."},
			Similarity: 0.91,
		},
		{
			Document:   knowledgex.Document{ID: "d2", Content: "Automatizaciones de procesos."},
			Similarity: 0.72,
		},
	}}
	d := newTestDispatcher(t, searcher, &fakeLeads{})

	payload := d.Dispatch(context.Background(), ToolSearchKnowledge, `{"query":"servicios"}`)

	var got searchPayload
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("invalid payload %q: %v", payload, err)
	}
	if got.Count != 2 || len(got.Results) != 2 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Results[0].Content != "Desarrollamos chatbots a medida." {
		t.Fatalf("unexpected first result: %+v", got.Results[0])
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "servicios" {
		t.Fatalf("unexpected queries: %v", searcher.queries)
	}
}

func TestDispatchSearchKnowledgeMissingQuery(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	d := newTestDispatcher(t, searcher, &fakeLeads{})

	envelope := decodeEnvelope(t, d.Dispatch(context.Background(), ToolSearchKnowledge, "{}"))
	msg, _ := envelope["error"].(string)
	if !strings.Contains(msg, "query") {
		t.Fatalf("unexpected error message: %v", envelope)
	}
	if len(searcher.queries) != 0 {
		t.Fatalf("search must not run without query, got %v", searcher.queries)
	}
}

func TestDispatchSearchFailureIsIsolated(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{err: errors.New("embedding service down")}
	d := newTestDispatcher(t, searcher, &fakeLeads{})

	envelope := decodeEnvelope(t, d.Dispatch(context.Background(), ToolSearchKnowledge, `{"query":"precios"}`))
	if _, ok := envelope["error"]; !ok {
		t.Fatalf("expected error envelope, got %v", envelope)
	}
}

func TestDispatchCalculateQuote(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, &fakeSearcher{}, &fakeLeads{})

	payload := d.Dispatch(context.Background(), ToolCalculateQuote, `{"serviceType":"Chatbot","complexity":"High","clientName":"ACME"}`)

	var got quotex.Quote
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("invalid payload %q: %v", payload, err)
	}
	if got.Amount != 1500*2.5 {
		t.Fatalf("unexpected amount: %v", got.Amount)
	}
	if got.Currency != "EUR" || got.Status != "ESTIMATE" {
		t.Fatalf("unexpected quote: %+v", got)
	}
}

func TestDispatchCalculateQuoteInvalidEnum(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, &fakeSearcher{}, &fakeLeads{})

	envelope := decodeEnvelope(t, d.Dispatch(context.Background(), ToolCalculateQuote, `{"serviceType":"Hosting","complexity":"High"}`))
	if _, ok := envelope["error"]; !ok {
		t.Fatalf("expected error envelope, got %v", envelope)
	}
}

func TestDispatchSaveLeadMissingEmail(t *testing.T) {
	t.Parallel()

	leads := &fakeLeads{}
	d := newTestDispatcher(t, &fakeSearcher{}, leads)

	envelope := decodeEnvelope(t, d.Dispatch(context.Background(), ToolSaveLead, `{"name":"Ana"}`))
	msg, _ := envelope["error"].(string)
	if !strings.Contains(msg, "email") {
		t.Fatalf("unexpected error message: %v", envelope)
	}
	if len(leads.inserts) != 0 {
		t.Fatalf("no record may be written without email, got %v", leads.inserts)
	}
}

func TestDispatchSaveLead(t *testing.T) {
	t.Parallel()

	leads := &fakeLeads{}
	d := newTestDispatcher(t, &fakeSearcher{}, leads)

	payload := d.Dispatch(context.Background(), ToolSaveLead, `{"name":"Ana","email":"ana@example.com","notes":"quiere un chatbot"}`)

	var got leadPayload
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("invalid payload %q: %v", payload, err)
	}
	if !got.Success {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(leads.inserts) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(leads.inserts))
	}
	if rec := leads.inserts[0]; rec.email != "ana@example.com" || rec.name != "Ana" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(&fakeSearcher{}, panicCalculator{}, &fakeLeads{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope := decodeEnvelope(t, d.Dispatch(context.Background(), ToolCalculateQuote, `{"serviceType":"Chatbot","complexity":"Low"}`))
	msg, _ := envelope["error"].(string)
	if !strings.Contains(msg, "panicked") {
		t.Fatalf("unexpected error message: %v", envelope)
	}
}

func TestNewDispatcherRequiresDependencies(t *testing.T) {
	t.Parallel()

	calc := quotex.NewCalculator()
	if _, err := NewDispatcher(nil, calc, &fakeLeads{}); err == nil {
		t.Fatal("expected error for nil searcher")
	}
	if _, err := NewDispatcher(&fakeSearcher{}, nil, &fakeLeads{}); err == nil {
		t.Fatal("expected error for nil calculator")
	}
	if _, err := NewDispatcher(&fakeSearcher{}, calc, nil); err == nil {
		t.Fatal("expected error for nil lead recorder")
	}
}

func TestDefinitionsExposeRegisteredTools(t *testing.T) {
	t.Parallel()

	defs := Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 tool definitions, got %d", len(defs))
	}

	want := []string{ToolSearchKnowledge, ToolCalculateQuote, ToolSaveLead}
	for i, def := range defs {
		if def.OfFunction == nil {
			t.Fatalf("definition %d is not a function tool", i)
		}
		if def.OfFunction.Function.Name != want[i] {
			t.Fatalf("unexpected tool at %d: %s", i, def.OfFunction.Function.Name)
		}
		required, ok := def.OfFunction.Function.Parameters["required"].([]string)
		if !ok || len(required) == 0 {
			t.Fatalf("tool %s has no required parameters", want[i])
		}
	}
}
