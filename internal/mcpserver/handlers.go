package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *AegisClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *AegisClient) *Handlers {
	return &Handlers{client: client}
}

// HandleScanWallet runs a read-only detection and analysis pass.
func (h *Handlers) HandleScanWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ScanWallet(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	text, err := formatOutcome(raw, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scan result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleExecuteResponses runs the full protection pass.
func (h *Handlers) HandleExecuteResponses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ExecuteResponses(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Protection pass failed: %v", err)), nil
	}

	text, err := formatOutcome(raw, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse outcome: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleScorePoolRisk scores a pool from user-supplied metrics.
func (h *Handlers) HandleScorePoolRisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics := make(map[string]any)
	args := req.GetArguments()
	for _, family := range []string{"liquidity", "volatility", "incentive", "smartContract", "protocol"} {
		if raw := args[family]; raw != nil {
			if m, ok := raw.(map[string]any); ok {
				metrics[family] = m
			}
		}
	}
	if len(metrics) == 0 {
		return mcp.NewToolResultError("at least one metric family is required"), nil
	}

	raw, err := h.client.ScorePoolRisk(ctx, metrics)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scoring failed: %v", err)), nil
	}

	text, err := formatScore(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse score: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetProof fetches a decision record.
func (h *Handlers) HandleGetProof(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	proofID := req.GetString("proof_id", "")
	if proofID == "" {
		return mcp.NewToolResultError("proof_id is required"), nil
	}

	raw, err := h.client.GetProof(ctx, proofID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch proof: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// HandleVerifyProof verifies a decision record's backing.
func (h *Handlers) HandleVerifyProof(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	proofID := req.GetString("proof_id", "")
	if proofID == "" {
		return mcp.NewToolResultError("proof_id is required"), nil
	}

	raw, err := h.client.VerifyProof(ctx, proofID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Verification request failed: %v", err)), nil
	}

	text, err := formatVerification(proofID, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse verification: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListProofs lists recent decision records for the wallet.
func (h *Handlers) HandleListProofs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListProofs(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list proofs: %v", err)), nil
	}

	text, err := formatProofList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse proofs: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetPermissions shows the wallet's permission configuration.
func (h *Handlers) HandleGetPermissions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetPermissions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get permissions: %v", err)), nil
	}

	text, err := formatPermissions(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse permissions: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

type outcomeView struct {
	Outcome struct {
		Status  string `json:"status"`
		Subject string `json:"subject"`
		Threats []struct {
			Kind     string `json:"kind"`
			Severity string `json:"severity"`
			Detail   string `json:"detail"`
			Protocol string `json:"protocol"`
		} `json:"threats"`
		Analyses []struct {
			Result struct {
				Breakdown struct {
					OverallScore int    `json:"overallScore"`
					RiskLevel    string `json:"riskLevel"`
				} `json:"breakdown"`
				Recommendation string `json:"recommendation"`
				Confidence     int    `json:"confidence"`
			} `json:"result"`
			ProofID string `json:"proofId"`
		} `json:"analyses"`
		Results []struct {
			Action struct {
				Kind     string `json:"kind"`
				Protocol string `json:"protocol"`
			} `json:"action"`
			Success bool   `json:"success"`
			TxRef   string `json:"txRef"`
			ProofID string `json:"proofId"`
			Error   string `json:"error"`
		} `json:"results"`
		PendingApprovals []struct {
			Action struct {
				Kind     string `json:"kind"`
				Protocol string `json:"protocol"`
			} `json:"action"`
			Reason string `json:"reason"`
		} `json:"pendingApprovals"`
		Error string `json:"error"`
	} `json:"outcome"`
	Narratives []string `json:"narratives"`
}

func formatOutcome(raw json.RawMessage, executed bool) (string, error) {
	var v outcomeView
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	o := v.Outcome

	if o.Error != "" {
		return fmt.Sprintf("Pipeline error for %s: %s", o.Subject, o.Error), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Wallet: %s\n", o.Subject)

	if len(o.Threats) == 0 {
		sb.WriteString("No threats detected. Positions look healthy.\n")
		return sb.String(), nil
	}

	fmt.Fprintf(&sb, "Threats detected: %d\n\n", len(o.Threats))
	for i, th := range o.Threats {
		fmt.Fprintf(&sb, "%d. [%s] %s", i+1, strings.ToUpper(th.Severity), th.Kind)
		if th.Protocol != "" {
			fmt.Fprintf(&sb, " (%s)", th.Protocol)
		}
		fmt.Fprintf(&sb, "\n   %s\n", th.Detail)
	}

	if len(v.Narratives) > 0 {
		sb.WriteString("\nAnalyses:\n")
		for _, n := range v.Narratives {
			sb.WriteString(n)
			sb.WriteString("\n")
		}
	}

	if executed {
		if len(o.Results) > 0 {
			sb.WriteString("\nActions taken:\n")
			for _, r := range o.Results {
				if r.Success {
					fmt.Fprintf(&sb, "  %s via %s succeeded (tx %s, proof %s)\n",
						r.Action.Kind, r.Action.Protocol, r.TxRef, r.ProofID)
				} else {
					fmt.Fprintf(&sb, "  %s via %s FAILED: %s\n",
						r.Action.Kind, r.Action.Protocol, r.Error)
				}
			}
		}
		if len(o.PendingApprovals) > 0 {
			sb.WriteString("\nAwaiting your approval (not authorized by current permissions):\n")
			for _, p := range o.PendingApprovals {
				fmt.Fprintf(&sb, "  %s via %s: %s\n", p.Action.Kind, p.Action.Protocol, p.Reason)
			}
		}
	} else {
		sb.WriteString("\nNo actions dispatched (read-only scan). Use execute_responses to act.\n")
	}

	return sb.String(), nil
}

func formatScore(raw json.RawMessage) (string, error) {
	var v struct {
		Breakdown struct {
			OverallScore int    `json:"overallScore"`
			RiskLevel    string `json:"riskLevel"`
			Confidence   int    `json:"confidence"`
		} `json:"breakdown"`
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}

	if v.Narrative != "" {
		return v.Narrative, nil
	}
	return fmt.Sprintf("Score: %d/100 (%s risk, confidence %d%%)",
		v.Breakdown.OverallScore, v.Breakdown.RiskLevel, v.Breakdown.Confidence), nil
}

func formatVerification(proofID string, raw json.RawMessage) (string, error) {
	var v struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}

	if v.Valid {
		return fmt.Sprintf("Proof %s is VALID: evidence backing and freshness check out.", proofID), nil
	}
	return fmt.Sprintf("Proof %s is INVALID: %s", proofID, v.Reason), nil
}

func formatProofList(raw json.RawMessage) (string, error) {
	var v struct {
		Proofs []struct {
			ID             string `json:"id"`
			Role           string `json:"role"`
			ExecutionClass bool   `json:"executionClass"`
			Confirmed      bool   `json:"confirmed"`
			CreatedAt      string `json:"createdAt"`
		} `json:"proofs"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}

	if len(v.Proofs) == 0 {
		return "No decision records for this wallet yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d decision record(s), newest first:\n\n", len(v.Proofs))
	for i, p := range v.Proofs {
		class := "evaluation"
		if p.ExecutionClass {
			class = "execution"
			if p.Confirmed {
				class = "execution (confirmed)"
			}
		}
		fmt.Fprintf(&sb, "%d. %s\n   Role: %s | Class: %s | At: %s\n", i+1, p.ID, p.Role, class, p.CreatedAt)
	}
	return sb.String(), nil
}

func formatPermissions(raw json.RawMessage) (string, error) {
	var v struct {
		Permissions map[string]any `json:"permissions"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	p := v.Permissions
	if p == nil {
		return "", fmt.Errorf("unexpected permissions response format")
	}

	onOff := func(key string) string {
		if b, ok := p[key].(bool); ok && b {
			return "on"
		}
		return "off"
	}

	var sb strings.Builder
	sb.WriteString("Permission configuration:\n")
	fmt.Fprintf(&sb, "  Monitoring:        %s\n", onOff("monitoringEnabled"))
	fmt.Fprintf(&sb, "  Auto exit pools:   %s\n", onOff("autoExitPools"))
	fmt.Fprintf(&sb, "  Auto revoke:       %s\n", onOff("autoRevokeApprovals"))
	fmt.Fprintf(&sb, "  Auto unstake:      %s\n", onOff("autoUnstake"))
	fmt.Fprintf(&sb, "  Executor:          %s\n", onOff("executorEnabled"))
	if f, ok := p["ilThresholdBps"].(float64); ok {
		fmt.Fprintf(&sb, "  IL threshold:      %.1f%%\n", f/100)
	}
	if f, ok := p["healthFactorThresholdBps"].(float64); ok {
		fmt.Fprintf(&sb, "  HF threshold:      %.2f\n", f/10000)
	}
	if s, ok := p["maxTxAmountUsd"].(string); ok {
		fmt.Fprintf(&sb, "  Max tx amount:     %s USD\n", s)
	}
	if f, ok := p["dailyTxLimit"].(float64); ok {
		used, _ := p["txCountToday"].(float64)
		fmt.Fprintf(&sb, "  Daily tx limit:    %.0f (%.0f used today)\n", f, used)
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}
