package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Aegis MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScanWallet = mcp.NewTool("scan_wallet",
	mcp.WithDescription(
		"Scan the configured wallet for DeFi risks: impermanent loss breaches, "+
			"lending positions near liquidation, unlimited token approvals, and suspicious activity. "+
			"Read-only: reports threats and analyses but dispatches no transactions."),
)

var ToolExecuteResponses = mcp.NewTool("execute_responses",
	mcp.WithDescription(
		"Run a full protection pass over the configured wallet. Detects threats, analyzes them, "+
			"and dispatches protective actions (pool exits, approval revokes, unstakes) that the wallet's "+
			"permission configuration authorizes. Every action is backed by a verifiable decision record. "+
			"Actions the configuration does not authorize are returned as pending approvals instead."),
)

var ToolScorePoolRisk = mcp.NewTool("score_pool_risk",
	mcp.WithDescription(
		"Score a liquidity pool's risk from raw metrics across five families: "+
			"liquidity, volatility, incentive sustainability, smart contract, and protocol trust. "+
			"Returns a 1-100 safety score (100 = safest), a risk level, and per-family drivers. "+
			"Omit families you have no data for; confidence reflects coverage."),
	mcp.WithObject("liquidity",
		mcp.Description("Liquidity metrics: {\"tvl\": 5000000, \"tvlChange24h\": -2.0, \"depthRatio\": 0.6, \"lpConcentration\": 0.2}")),
	mcp.WithObject("volatility",
		mcp.Description("Volatility metrics: {\"volatility7d\": 6.0, \"ilEstimate\": 1.5, \"maxDrawdown30d\": 8.0}")),
	mcp.WithObject("incentive",
		mcp.Description("Incentive metrics: {\"headlineApr\": 15, \"effectiveApr\": 9, \"rewardTrend30d\": -5, \"emissionSustainability\": 0.8}")),
	mcp.WithObject("smartContract",
		mcp.Description("Contract metrics: {\"ageDays\": 200, \"upgradeLocked\": true, \"verifiedInstructions\": 20, \"exploitHistory\": false}")),
	mcp.WithObject("protocol",
		mcp.Description("Protocol metrics: {\"teamDoxxed\": true, \"audited\": true, \"auditCount\": 2, \"categoryRank\": 3, \"governance\": \"multisig\"}")),
)

var ToolGetProof = mcp.NewTool("get_proof",
	mcp.WithDescription(
		"Fetch a decision record by ID. Decision records are the tamper-evident audit trail: "+
			"every detection, analysis, and executed action logs one, with input and decision hashes."),
	mcp.WithString("proof_id",
		mcp.Required(),
		mcp.Description("The decision record ID (e.g. 'proof_...')")),
)

var ToolVerifyProof = mcp.NewTool("verify_proof",
	mcp.WithDescription(
		"Verify a decision record: checks that an execution-class record carries evidence from "+
			"at least two independent families and is within the freshness window. "+
			"Use this to audit whether an automated action was properly backed."),
	mcp.WithString("proof_id",
		mcp.Required(),
		mcp.Description("The decision record ID to verify")),
)

var ToolListProofs = mcp.NewTool("list_proofs",
	mcp.WithDescription(
		"List recent decision records for the configured wallet, newest first. "+
			"Shows what the pipeline has detected, analyzed, and executed."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of records to return (default 20)")),
)

var ToolGetPermissions = mcp.NewTool("get_permissions",
	mcp.WithDescription(
		"Show the wallet's permission configuration: which automated responses are enabled, "+
			"detection thresholds, spend caps, allowed protocols, and the daily transaction limit."),
)
