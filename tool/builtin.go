package tool

// BuiltinOptions carries the API credentials and shared HTTP client for the
// built-in tool set. Tools whose key is empty are still registered; their
// backends will reject calls with an auth error, which the executor reports
// as a non-retryable failure.
type BuiltinOptions struct {
	// Client is shared by all HTTP-backed tools. Defaults per tool when nil.
	Client HTTPDoer

	TavilyAPIKey     string
	NVDAPIKey        string
	VirusTotalAPIKey string
	OTXAPIKey        string
	ZoomEyeAPIKey    string

	// KnowledgeDocs overrides the built-in knowledge base corpus.
	KnowledgeDocs []KnowledgeDocument
}

// Builtin returns the full advisory tool set: web and knowledge search, IOC
// analysis, exposure checking, threat feeds, vulnerability search, attack
// surface analysis, and compliance guidance.
func Builtin(optFns ...func(o *BuiltinOptions)) []Tool {
	var opts BuiltinOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	withClient := func(client *HTTPDoer) {
		if opts.Client != nil {
			*client = opts.Client
		}
	}

	webSearch := NewWebSearchTool(opts.TavilyAPIKey, func(o *WebSearchOptions) { withClient(&o.Client) })
	vulnSearch := NewVulnerabilitySearchTool(opts.NVDAPIKey, func(o *VulnerabilitySearchOptions) { withClient(&o.Client) })
	iocAnalysis := NewIOCAnalysisTool(opts.VirusTotalAPIKey, func(o *IOCAnalysisOptions) { withClient(&o.Client) })
	threatFeeds := NewThreatFeedsTool(opts.OTXAPIKey, func(o *ThreatFeedsOptions) { withClient(&o.Client) })
	attackSurface := NewAttackSurfaceTool(opts.ZoomEyeAPIKey, func(o *AttackSurfaceOptions) { withClient(&o.Client) })
	exposure := NewExposureCheckerTool(func(o *ExposureCheckerOptions) { withClient(&o.Client) })

	return []Tool{
		webSearch,
		vulnSearch,
		iocAnalysis,
		NewKnowledgeSearchTool(opts.KnowledgeDocs),
		threatFeeds,
		attackSurface,
		exposure,
		NewComplianceGuidanceTool(),
	}
}
