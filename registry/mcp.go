// CLAUDE:SUMMARY MCP tool registration: source management, scraping, dedupe preview, stats.
package registry

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/fieldreg/idgen"
	"github.com/hazyhaar/fieldreg/kit"
)

// RegisterMCP registers all registry tools on an MCP server.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerAddSource(srv)
	svc.registerListSources(srv)
	svc.registerScrape(srv)
	svc.registerScrapeAll(srv)
	svc.registerDedupePreview(srv)
	svc.registerStats(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (svc *Service) registerAddSource(srv *mcp.Server) {
	type req struct {
		Name         string  `json:"name"`
		Agency       string  `json:"agency"`
		URL          string  `json:"url"`
		ParseType    string  `json:"parse_type"`
		Selector     string  `json:"selector"`
		RateLimitRPS float64 `json:"rate_limit_rps"`
		Interval     int64   `json:"fetch_interval"`
	}

	tool := &mcp.Tool{
		Name:        "fieldreg_add_source",
		Description: "Add a new scrape target to the field-office registry",
		InputSchema: inputSchema(map[string]any{
			"name":           map[string]any{"type": "string", "description": "Source name"},
			"agency":         map[string]any{"type": "string", "description": "Agency the source belongs to (e.g. CISA, FBI)"},
			"url":            map[string]any{"type": "string", "description": "URL to scrape"},
			"parse_type":     map[string]any{"type": "string", "description": "Parse mode: structured-text, json, pdf, csv"},
			"selector":       map[string]any{"type": "string", "description": "Pattern hint; presence selects the pattern extractor"},
			"rate_limit_rps": map[string]any{"type": "number", "description": "Requests per second budget for the source's domain"},
			"fetch_interval": map[string]any{"type": "integer", "description": "Scheduler cadence in ms"},
		}, []string{"name", "agency", "url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		src := &Source{
			ID:            idgen.Prefixed("src_", svc.newID)(),
			Name:          p.Name,
			Agency:        p.Agency,
			URL:           p.URL,
			ParseType:     p.ParseType,
			Selector:      p.Selector,
			RateLimitRPS:  p.RateLimitRPS,
			FetchInterval: p.Interval,
			Enabled:       true,
		}
		if err := svc.store.InsertSource(ctx, src); err != nil {
			return nil, err
		}
		return src, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerListSources(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "fieldreg_list_sources",
		Description: "List all configured scrape sources with their fetch status",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return svc.store.ListSources(ctx)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerScrape(srv *mcp.Server) {
	type req struct {
		SourceID string `json:"source_id"`
		Force    bool   `json:"force"`
	}

	tool := &mcp.Tool{
		Name:        "fieldreg_scrape",
		Description: "Run one scrape cycle for a source: fetch, extract, deduplicate, persist",
		InputSchema: inputSchema(map[string]any{
			"source_id": map[string]any{"type": "string", "description": "Source ID"},
			"force":     map[string]any{"type": "boolean", "description": "Bypass throttle and unchanged-content short-circuit"},
		}, []string{"source_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		res, err := svc.ScrapeSource(ctx, p.SourceID, p.Force)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerScrapeAll(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "fieldreg_scrape_all",
		Description: "Scrape every enabled source sequentially and return per-source results",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return svc.ScrapeAll(ctx)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerDedupePreview(srv *mcp.Server) {
	type req struct {
		Agency  string `json:"agency"`
		Name    string `json:"name"`
		Address string `json:"address"`
		City    string `json:"city"`
		State   string `json:"state"`
		Phone   string `json:"phone"`
		Website string `json:"website"`
	}

	tool := &mcp.Tool{
		Name:        "fieldreg_dedupe_preview",
		Description: "Classify a hypothetical office record against the index (create/merge/skip) without persisting",
		InputSchema: inputSchema(map[string]any{
			"agency":  map[string]any{"type": "string", "description": "Agency name"},
			"name":    map[string]any{"type": "string", "description": "Office name"},
			"address": map[string]any{"type": "string", "description": "Street address"},
			"city":    map[string]any{"type": "string", "description": "City"},
			"state":   map[string]any{"type": "string", "description": "State"},
			"phone":   map[string]any{"type": "string", "description": "Phone number"},
			"website": map[string]any{"type": "string", "description": "Website URL"},
		}, []string{"agency", "name"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		e := &Entity{
			ID:      idgen.Office(p.Agency, p.Name),
			Agency:  p.Agency,
			Name:    p.Name,
			Address: p.Address,
			City:    p.City,
			State:   p.State,
			Phone:   p.Phone,
			Website: p.Website,
		}
		return svc.DedupePreview(ctx, e), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerStats(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "fieldreg_stats",
		Description: "Aggregate registry counters: sources, entities, changes, index size",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		stats, index, err := svc.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"registry": stats, "index": index}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

// decodeInto unmarshals tool arguments into T for the kit decode hook.
func decodeInto[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var p T
	if len(r.Params.Arguments) > 0 {
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &p}, nil
}
