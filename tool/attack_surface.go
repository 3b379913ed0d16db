package tool

import (
	"context"
	"net/url"
)

const zoomEyeEndpoint = "https://api.zoomeye.org"

// OpenPort describes one exposed service found on a host.
type OpenPort struct {
	Port    int    `json:"port"`
	Service string `json:"service,omitempty"`
	Banner  string `json:"banner,omitempty"`
}

// AttackSurfaceResponse is the payload the attack_surface tool returns.
type AttackSurfaceResponse struct {
	Host         string     `json:"host"`
	IPAddress    string     `json:"ip_address,omitempty"`
	Organization string     `json:"organization,omitempty"`
	Country      string     `json:"country,omitempty"`
	OpenPorts    []OpenPort `json:"open_ports"`
}

// AttackSurfaceTool analyzes the external exposure of a host or domain via
// the ZoomEye host search API.
type AttackSurfaceTool struct {
	client  HTTPDoer
	apiKey  string
	baseURL string
}

// AttackSurfaceOptions configures the ZoomEye backend.
type AttackSurfaceOptions struct {
	Client  HTTPDoer
	BaseURL string
}

// NewAttackSurfaceTool constructs the attack_surface tool.
func NewAttackSurfaceTool(apiKey string, optFns ...func(o *AttackSurfaceOptions)) *AttackSurfaceTool {
	opts := AttackSurfaceOptions{BaseURL: zoomEyeEndpoint}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		opts.Client = defaultHTTPClient()
	}
	return &AttackSurfaceTool{client: opts.Client, apiKey: apiKey, baseURL: opts.BaseURL}
}

func (t *AttackSurfaceTool) Name() string { return "attack_surface" }

func (t *AttackSurfaceTool) Description() string {
	return "Analyze the external attack surface of a host or domain: open ports, exposed services, and owning organization."
}

func (t *AttackSurfaceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"host": map[string]any{
				"type":        "string",
				"description": "IP address or domain name to analyze",
			},
		},
		"required": []string{"host"},
	}
}

func (t *AttackSurfaceTool) Call(ctx context.Context, args map[string]any) (any, error) {
	host := stringArg(args, "host")

	headers := map[string]string{"API-KEY": t.apiKey}

	var raw struct {
		Matches []struct {
			IP      string `json:"ip"`
			PortNum int    `json:"portinfo_port"`
			Portinfo struct {
				Port    int    `json:"port"`
				Service string `json:"service"`
				Banner  string `json:"banner"`
			} `json:"portinfo"`
			Geoinfo struct {
				Country struct {
					Names struct {
						En string `json:"en"`
					} `json:"names"`
				} `json:"country"`
				Organization string `json:"organization"`
			} `json:"geoinfo"`
		} `json:"matches"`
	}
	endpoint := t.baseURL + "/host/search?query=" + url.QueryEscape(host)
	if err := getJSON(ctx, t.client, t.Name(), endpoint, headers, &raw); err != nil {
		return nil, err
	}

	out := AttackSurfaceResponse{Host: host, OpenPorts: []OpenPort{}}
	seen := map[int]bool{}
	for _, m := range raw.Matches {
		if out.IPAddress == "" {
			out.IPAddress = m.IP
		}
		if out.Organization == "" {
			out.Organization = m.Geoinfo.Organization
		}
		if out.Country == "" {
			out.Country = m.Geoinfo.Country.Names.En
		}
		port := m.Portinfo.Port
		if port == 0 {
			port = m.PortNum
		}
		if port == 0 || seen[port] {
			continue
		}
		seen[port] = true
		out.OpenPorts = append(out.OpenPorts, OpenPort{
			Port:    port,
			Service: m.Portinfo.Service,
			Banner:  m.Portinfo.Banner,
		})
	}
	return out, nil
}
