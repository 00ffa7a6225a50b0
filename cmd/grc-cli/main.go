// Package main implements the grc-cli command-line tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/client"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getClient creates an API client from the command flags.
func getClient(cmd *cobra.Command) *client.Client {
	apiURL, _ := cmd.Root().PersistentFlags().GetString("api-url")
	token := os.Getenv("GRC_TOKEN")

	return client.New(client.Config{
		BaseURL: apiURL,
		Token:   token,
		Timeout: 30 * time.Second,
	})
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool("json")
	return v
}

func pageFlags(cmd *cobra.Command) (int, int) {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	return limit, offset
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 50, "Maximum results")
	cmd.Flags().Int("offset", 0, "Result offset")
}

func searchFlag(cmd *cobra.Command) string {
	s, _ := cmd.Flags().GetString("search")
	return s
}

func addSearchFlag(cmd *cobra.Command) {
	cmd.Flags().String("search", "", "Free-text filter")
}

var rootCmd = &cobra.Command{
	Use:     "grc-cli",
	Short:   "GRC CLI - Governance, Risk & Compliance",
	Long:    `GRC CLI provides command-line access to the compliance management API.`,
	Version: version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(vendorCmd)
	rootCmd.AddCommand(frameworkCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(assetCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(riskCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(integrationCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(healthCmd)

	// Global flags
	rootCmd.PersistentFlags().String("api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}

// ============================================================================
// Vendor Commands
// ============================================================================

var vendorCmd = &cobra.Command{
	Use:   "vendor",
	Short: "Vendor management",
	Long:  `Manage third-party vendors and their risk assessments.`,
}

var vendorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vendors",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)

		c := getClient(cmd)
		ctx := context.Background()

		vendors, err := c.ListVendors(ctx, client.VendorFilter{Search: searchFlag(cmd)}, limit, offset)
		if err != nil {
			return fmt.Errorf("list vendors: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(vendors)
		} else {
			for _, v := range vendors.Vendors {
				fmt.Printf("%s  %-30s  %-12s  %s\n", v.ID, v.Name, v.Criticality, v.Status)
			}
			fmt.Printf("Total: %d\n", vendors.Total)
		}
		return nil
	},
}

var vendorGetCmd = &cobra.Command{
	Use:   "get [vendor-id]",
	Short: "Get vendor details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		v, err := c.GetVendor(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get vendor: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(v)
		} else {
			fmt.Printf("ID: %s\nName: %s\nCategory: %s\nCriticality: %s\nStatus: %s\nAssessments: %d\n",
				v.ID, v.Name, v.Category, v.Criticality, v.Status, len(v.Assessments))
		}
		return nil
	},
}

var vendorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new vendor",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		category, _ := cmd.Flags().GetString("category")
		criticality, _ := cmd.Flags().GetString("criticality")
		website, _ := cmd.Flags().GetString("website")

		if name == "" {
			return fmt.Errorf("--name is required")
		}

		c := getClient(cmd)
		ctx := context.Background()

		v, err := c.CreateVendor(ctx, map[string]string{
			"name":        name,
			"category":    category,
			"criticality": criticality,
			"website":     website,
		})
		if err != nil {
			return fmt.Errorf("create vendor: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(v)
		} else {
			fmt.Printf("Vendor created: %s (%s)\n", v.Name, v.ID)
		}
		return nil
	},
}

var vendorDeleteCmd = &cobra.Command{
	Use:   "delete [vendor-id]",
	Short: "Delete a vendor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		if err := c.DeleteVendor(ctx, args[0]); err != nil {
			return fmt.Errorf("delete vendor: %w", err)
		}

		fmt.Printf("Vendor deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	addPageFlags(vendorListCmd)
	addSearchFlag(vendorListCmd)

	vendorCreateCmd.Flags().String("name", "", "Vendor name")
	vendorCreateCmd.Flags().String("category", "", "Vendor category")
	vendorCreateCmd.Flags().String("criticality", "medium", "Criticality (low, medium, high, critical)")
	vendorCreateCmd.Flags().String("website", "", "Vendor website")

	vendorCmd.AddCommand(vendorListCmd)
	vendorCmd.AddCommand(vendorGetCmd)
	vendorCmd.AddCommand(vendorCreateCmd)
	vendorCmd.AddCommand(vendorDeleteCmd)
}

// ============================================================================
// Framework Commands
// ============================================================================

var frameworkCmd = &cobra.Command{
	Use:   "framework",
	Short: "Compliance framework management",
	Long:  `Browse compliance frameworks, their requirements, and coverage.`,
}

var frameworkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List frameworks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)

		c := getClient(cmd)
		ctx := context.Background()

		frameworks, err := c.ListFrameworks(ctx, client.FrameworkFilter{Search: searchFlag(cmd)}, limit, offset)
		if err != nil {
			return fmt.Errorf("list frameworks: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(frameworks)
		} else {
			for _, f := range frameworks.Frameworks {
				kind := "custom"
				if f.IsSystem {
					kind = "system"
				}
				fmt.Printf("%s  %-30s  %-10s  %s\n", f.ID, f.Name, f.Version, kind)
			}
		}
		return nil
	},
}

var frameworkGetCmd = &cobra.Command{
	Use:   "get [framework-id]",
	Short: "Get framework details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		f, err := c.GetFramework(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get framework: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(f)
		} else {
			fmt.Printf("ID: %s\nName: %s\nVersion: %s\nCategory: %s\nSystem: %t\n",
				f.ID, f.Name, f.Version, f.Category, f.IsSystem)
		}
		return nil
	},
}

var frameworkRequirementsCmd = &cobra.Command{
	Use:   "requirements [framework-id]",
	Short: "List framework requirements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		reqs, err := c.ListRequirements(ctx, args[0])
		if err != nil {
			return fmt.Errorf("list requirements: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(reqs)
		} else {
			for _, req := range reqs.Requirements {
				fmt.Printf("%-12s  %s\n", req.Code, req.Title)
			}
			fmt.Printf("Total: %d\n", reqs.Count)
		}
		return nil
	},
}

var frameworkGapCmd = &cobra.Command{
	Use:   "gap-analysis [framework-id]",
	Short: "Show control coverage for a framework",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		gap, err := c.GetGapAnalysis(ctx, args[0])
		if err != nil {
			return fmt.Errorf("gap analysis: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(gap)
		} else {
			fmt.Printf("Framework: %s\nRequirements: %d\nMapped: %d\nImplemented: %d\nCoverage: %.1f%%\n",
				gap.FrameworkName, gap.TotalRequirements, gap.MappedAny, gap.MappedImplemented, gap.CoveragePercent)
			for _, cat := range gap.Categories {
				fmt.Printf("  %-30s  %d/%d implemented  %.1f%%\n",
					cat.Category, cat.MappedImplemented, cat.TotalRequirements, cat.CoveragePercent)
			}
		}
		return nil
	},
}

func init() {
	addPageFlags(frameworkListCmd)
	addSearchFlag(frameworkListCmd)

	frameworkCmd.AddCommand(frameworkListCmd)
	frameworkCmd.AddCommand(frameworkGetCmd)
	frameworkCmd.AddCommand(frameworkRequirementsCmd)
	frameworkCmd.AddCommand(frameworkGapCmd)
}

// ============================================================================
// Control Commands
// ============================================================================

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Internal control management",
	Long:  `Browse internal controls and their framework mappings.`,
}

var controlListCmd = &cobra.Command{
	Use:   "list",
	Short: "List controls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)

		c := getClient(cmd)
		ctx := context.Background()

		controls, err := c.ListControls(ctx, client.ControlFilter{Search: searchFlag(cmd)}, limit, offset)
		if err != nil {
			return fmt.Errorf("list controls: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(controls)
		} else {
			for _, ctl := range controls.Controls {
				fmt.Printf("%-12s  %-40s  %s\n", ctl.Code, ctl.Name, ctl.Status)
			}
			fmt.Printf("Total: %d\n", controls.Total)
		}
		return nil
	},
}

var controlGetCmd = &cobra.Command{
	Use:   "get [control-id]",
	Short: "Get control details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		ctl, err := c.GetControl(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get control: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(ctl)
		} else {
			fmt.Printf("ID: %s\nCode: %s\nName: %s\nType: %s\nStatus: %s\nMapped requirements: %d\n",
				ctl.ID, ctl.Code, ctl.Name, ctl.ControlType, ctl.Status, len(ctl.MappedRequirements))
		}
		return nil
	},
}

func init() {
	addPageFlags(controlListCmd)
	addSearchFlag(controlListCmd)

	controlCmd.AddCommand(controlListCmd)
	controlCmd.AddCommand(controlGetCmd)
}

// ============================================================================
// Asset Commands
// ============================================================================

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Asset inventory",
	Long:  `Browse the asset inventory and linked controls.`,
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)

		c := getClient(cmd)
		ctx := context.Background()

		assets, err := c.ListAssets(ctx, client.AssetFilter{Search: searchFlag(cmd)}, limit, offset)
		if err != nil {
			return fmt.Errorf("list assets: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(assets)
		} else {
			for _, a := range assets.Assets {
				fmt.Printf("%s  %-30s  %-15s  %s\n", a.ID, a.Name, a.AssetType, a.LifecycleStage)
			}
			fmt.Printf("Total: %d\n", assets.Total)
		}
		return nil
	},
}

var assetGetCmd = &cobra.Command{
	Use:   "get [asset-id]",
	Short: "Get asset details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		a, err := c.GetAsset(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get asset: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(a)
		} else {
			fmt.Printf("ID: %s\nName: %s\nType: %s\nClassification: %s\nLifecycle: %s\nLinked controls: %d\n",
				a.ID, a.Name, a.AssetType, a.Classification, a.LifecycleStage, len(a.LinkedControls))
			if a.IntegrationSource != "" {
				fmt.Printf("Source: %s (%s)\n", a.IntegrationSource, a.ExternalID)
			}
		}
		return nil
	},
}

func init() {
	addPageFlags(assetListCmd)
	addSearchFlag(assetListCmd)

	assetCmd.AddCommand(assetListCmd)
	assetCmd.AddCommand(assetGetCmd)
}

// ============================================================================
// Policy Commands
// ============================================================================

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Policy document management",
	Long:  `Browse policy documents, move them through their lifecycle, and acknowledge them.`,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)

		c := getClient(cmd)
		ctx := context.Background()

		policies, err := c.ListPolicies(ctx, client.PolicyFilter{Search: searchFlag(cmd)}, limit, offset)
		if err != nil {
			return fmt.Errorf("list policies: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(policies)
		} else {
			for _, p := range policies.Policies {
				fmt.Printf("%-12s  %-40s  v%-3d  %s\n", p.Code, p.Title, p.Version, p.Status)
			}
			fmt.Printf("Total: %d\n", policies.Total)
		}
		return nil
	},
}

var policyGetCmd = &cobra.Command{
	Use:   "get [policy-id]",
	Short: "Get policy details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		p, err := c.GetPolicy(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get policy: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(p)
		} else {
			fmt.Printf("ID: %s\nCode: %s\nTitle: %s\nVersion: %d\nStatus: %s\nAcknowledgments: %d\n",
				p.ID, p.Code, p.Title, p.Version, p.Status, len(p.Acknowledgments))
		}
		return nil
	},
}

var policyTransitionCmd = &cobra.Command{
	Use:   "transition [policy-id] [status]",
	Short: "Move a policy to a new lifecycle status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		p, err := c.TransitionPolicy(ctx, args[0], models.PolicyStatus(args[1]))
		if err != nil {
			return fmt.Errorf("transition policy: %w", err)
		}

		fmt.Printf("Policy %s is now %s\n", p.Code, p.Status)
		return nil
	},
}

var policyAckCmd = &cobra.Command{
	Use:   "acknowledge [policy-id]",
	Short: "Acknowledge the current version of a policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		ack, err := c.AcknowledgePolicy(ctx, args[0])
		if err != nil {
			return fmt.Errorf("acknowledge policy: %w", err)
		}

		fmt.Printf("Acknowledged policy version %d\n", ack.PolicyVersion)
		return nil
	},
}

func init() {
	addPageFlags(policyListCmd)
	addSearchFlag(policyListCmd)

	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyGetCmd)
	policyCmd.AddCommand(policyTransitionCmd)
	policyCmd.AddCommand(policyAckCmd)
}

// ============================================================================
// Task Commands
// ============================================================================

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Compliance task management",
	Long:  `Browse compliance tasks and their comment threads.`,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)

		c := getClient(cmd)
		ctx := context.Background()

		tasks, err := c.ListTasks(ctx, client.TaskFilter{Search: searchFlag(cmd)}, limit, offset)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(tasks)
		} else {
			now := time.Now()
			for _, t := range tasks.Tasks {
				due := "-"
				if t.DueAt != nil {
					due = t.DueAt.Format("2006-01-02")
					if t.IsOverdue(now) {
						due += " (overdue)"
					}
				}
				fmt.Printf("%s  %-40s  %-10s  %-12s  %s\n", t.ID, t.Title, t.Priority, t.Status, due)
			}
			fmt.Printf("Total: %d\n", tasks.Total)
		}
		return nil
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get [task-id]",
	Short: "Get task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		t, err := c.GetTask(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(t)
		} else {
			fmt.Printf("ID: %s\nTitle: %s\nPriority: %s\nStatus: %s\nAssignee: %s\n",
				t.ID, t.Title, t.Priority, t.Status, t.Assignee)
			for _, cm := range t.Comments {
				fmt.Printf("  [%s] %s: %s\n", cm.CreatedAt.Format(time.RFC3339), cm.Author, cm.Content)
			}
		}
		return nil
	},
}

func init() {
	addPageFlags(taskListCmd)
	addSearchFlag(taskListCmd)

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskGetCmd)
}

// ============================================================================
// Risk Commands
// ============================================================================

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Risk register",
	Long:  `Browse the risk register and heatmap.`,
}

var riskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List risks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)

		c := getClient(cmd)
		ctx := context.Background()

		risks, err := c.ListRisks(ctx, client.RiskFilter{Search: searchFlag(cmd)}, limit, offset)
		if err != nil {
			return fmt.Errorf("list risks: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(risks)
		} else {
			for _, r := range risks.Risks {
				fmt.Printf("%s  %-40s  L%d x I%d = %2d  %-8s  %s\n",
					r.ID, r.Title, r.Likelihood, r.Impact, r.Score(), r.Level(), r.Status)
			}
			fmt.Printf("Total: %d\n", risks.Total)
		}
		return nil
	},
}

var riskHeatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Show the risk heatmap",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		hm, err := c.GetRiskHeatmap(ctx)
		if err != nil {
			return fmt.Errorf("get heatmap: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(hm)
		} else {
			for _, cell := range hm.Cells {
				fmt.Printf("L%d x I%d  %-8s  %d\n", cell.Likelihood, cell.Impact, cell.Level, cell.Count)
			}
			fmt.Printf("Total risks: %d\n", hm.Total)
			for level, count := range hm.ByLevel {
				fmt.Printf("  %s: %d\n", level, count)
			}
		}
		return nil
	},
}

func init() {
	addPageFlags(riskListCmd)
	addSearchFlag(riskListCmd)

	riskCmd.AddCommand(riskListCmd)
	riskCmd.AddCommand(riskHeatmapCmd)
}

// ============================================================================
// Search Commands
// ============================================================================

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search across all entities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		c := getClient(cmd)
		ctx := context.Background()

		resp, err := c.Search(ctx, args[0], limit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(resp)
		} else {
			for _, res := range resp.Results {
				fmt.Printf("%-10s  %-12s  %-40s  %s\n", res.Type, res.Code, res.Title, res.Path)
			}
			fmt.Printf("%d results in %dms\n", resp.Total, resp.ProcessingTimeMs)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 20, "Maximum results")
}

// ============================================================================
// Integration Commands
// ============================================================================

var integrationCmd = &cobra.Command{
	Use:   "integration",
	Short: "Asset integration management",
	Long:  `List registered asset integrations and trigger syncs.`,
}

var integrationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List integrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		list, err := c.ListIntegrations(ctx)
		if err != nil {
			return fmt.Errorf("list integrations: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(list)
		} else {
			for _, in := range list.Integrations {
				last := "never"
				if in.LastSyncAt != nil {
					last = in.LastSyncAt.Format(time.RFC3339)
				}
				fmt.Printf("%-20s  last sync: %s  assets: %d\n", in.Name, last, in.LastCount)
				if in.LastError != "" {
					fmt.Printf("  last error: %s\n", in.LastError)
				}
			}
		}
		return nil
	},
}

var integrationSyncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Trigger a sync for one integration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		res, err := c.SyncIntegration(ctx, args[0])
		if err != nil {
			return fmt.Errorf("sync integration: %w", err)
		}

		fmt.Printf("Synced %d assets from %s at %s\n", res.Synced, res.Provider, res.SyncedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	integrationCmd.AddCommand(integrationListCmd)
	integrationCmd.AddCommand(integrationSyncCmd)
}

// ============================================================================
// Login/Whoami/Health Commands
// ============================================================================

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange an SSO authorization code for a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")
		if code == "" {
			return fmt.Errorf("--code is required")
		}

		c := getClient(cmd)
		ctx := context.Background()

		session, err := c.ExchangeSSOCode(ctx, code)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Printf("Logged in as %s\n", session.User.Email)
		fmt.Printf("Set GRC_TOKEN environment variable with:\nexport GRC_TOKEN=%s\n", session.Token)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		user, err := c.Me(ctx)
		if err != nil {
			return fmt.Errorf("whoami: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(user)
		} else {
			fmt.Printf("ID: %s\nEmail: %s\nName: %s\nRole: %s\n", user.ID, user.Email, user.Name, user.Role)
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check API server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		ctx := context.Background()

		h, err := c.Health(ctx)
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}

		fmt.Printf("Status: %s\nVersion: %s\n", h.Status, h.Version)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("code", "", "SSO authorization code")
}

// ============================================================================
// Cloud Inventory Commands
// ============================================================================

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Cloud inventory viewers",
	Long:  `Browse cloud resources and findings collected from connected accounts.`,
}

func cloudFilterFromFlags(cmd *cobra.Command) client.CloudFilter {
	account, _ := cmd.Flags().GetString("account")
	region, _ := cmd.Flags().GetString("region")
	query, _ := cmd.Flags().GetString("query")
	return client.CloudFilter{AccountID: account, Region: region, Query: query}
}

func addCloudFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "Filter by account ID")
	cmd.Flags().String("region", "", "Filter by region")
	cmd.Flags().String("query", "", "Name search")
	addPageFlags(cmd)
}

var cloudS3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "List collected S3 buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		c := getClient(cmd)
		ctx := context.Background()

		buckets, err := c.ListS3Buckets(ctx, cloudFilterFromFlags(cmd), limit, offset)
		if err != nil {
			return fmt.Errorf("list s3 buckets: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(buckets)
		} else {
			for _, b := range buckets.Buckets {
				public := ""
				if b.Public {
					public = "PUBLIC"
				}
				fmt.Printf("%s  %-40s  %-12s  risk=%-2d  %s\n", b.ID, b.Name, b.Region, b.RiskScore, public)
			}
			fmt.Printf("Total: %d\n", buckets.Total)
		}
		return nil
	},
}

var cloudEC2Cmd = &cobra.Command{
	Use:   "ec2",
	Short: "List collected EC2 instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		filter := cloudFilterFromFlags(cmd)
		filter.State, _ = cmd.Flags().GetString("state")

		c := getClient(cmd)
		ctx := context.Background()

		instances, err := c.ListEC2Instances(ctx, filter, limit, offset)
		if err != nil {
			return fmt.Errorf("list ec2 instances: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(instances)
		} else {
			for _, in := range instances.Instances {
				public := ""
				if in.PubliclyAccessible {
					public = "PUBLIC"
				}
				fmt.Printf("%s  %-20s  %-20s  %-10s  risk=%-2d  %s\n", in.ID, in.InstanceID, in.Name, in.State, in.RiskScore, public)
			}
			fmt.Printf("Total: %d\n", instances.Total)
		}
		return nil
	},
}

var cloudRDSCmd = &cobra.Command{
	Use:   "rds",
	Short: "List collected RDS instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		c := getClient(cmd)
		ctx := context.Background()

		instances, err := c.ListRDSInstances(ctx, cloudFilterFromFlags(cmd), limit, offset)
		if err != nil {
			return fmt.Errorf("list rds instances: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(instances)
		} else {
			for _, in := range instances.Instances {
				fmt.Printf("%s  %-30s  %-12s  %-12s  risk=%d\n", in.ID, in.Identifier, in.Engine, in.Status, in.RiskScore)
			}
			fmt.Printf("Total: %d\n", instances.Total)
		}
		return nil
	},
}

var cloudIAMUsersCmd = &cobra.Command{
	Use:   "iam-users",
	Short: "List collected IAM users",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		c := getClient(cmd)
		ctx := context.Background()

		users, err := c.ListIAMUsers(ctx, cloudFilterFromFlags(cmd), limit, offset)
		if err != nil {
			return fmt.Errorf("list iam users: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(users)
		} else {
			for _, u := range users.Users {
				mfa := "mfa"
				if !u.MFAEnabled {
					mfa = "NO-MFA"
				}
				fmt.Printf("%s  %-30s  keys=%d  %-6s  risk=%d\n", u.ID, u.UserName, u.AccessKeyCount, mfa, u.RiskScore)
			}
			fmt.Printf("Total: %d\n", users.Total)
		}
		return nil
	},
}

var cloudIAMRolesCmd = &cobra.Command{
	Use:   "iam-roles",
	Short: "List collected IAM roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		c := getClient(cmd)
		ctx := context.Background()

		roles, err := c.ListIAMRoles(ctx, cloudFilterFromFlags(cmd), limit, offset)
		if err != nil {
			return fmt.Errorf("list iam roles: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(roles)
		} else {
			for _, role := range roles.Roles {
				trust := ""
				if role.WildcardTrust {
					trust = "WILDCARD-TRUST"
				}
				fmt.Printf("%s  %-40s  risk=%-2d  %s\n", role.ID, role.RoleName, role.RiskScore, trust)
			}
			fmt.Printf("Total: %d\n", roles.Total)
		}
		return nil
	},
}

var cloudIAMPoliciesCmd = &cobra.Command{
	Use:   "iam-policies",
	Short: "List collected IAM policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		c := getClient(cmd)
		ctx := context.Background()

		policies, err := c.ListIAMPolicies(ctx, cloudFilterFromFlags(cmd), limit, offset)
		if err != nil {
			return fmt.Errorf("list iam policies: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(policies)
		} else {
			for _, p := range policies.Policies {
				var flags []string
				if p.WildcardActions {
					flags = append(flags, "action:*")
				}
				if p.WildcardResources {
					flags = append(flags, "resource:*")
				}
				fmt.Printf("%s  %-40s  attached=%-3d  risk=%-2d  %s\n", p.ID, p.PolicyName, p.AttachmentCount, p.RiskScore, strings.Join(flags, " "))
			}
			fmt.Printf("Total: %d\n", policies.Total)
		}
		return nil
	},
}

var cloudEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List collected CloudTrail events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		filter := cloudFilterFromFlags(cmd)
		filter.EventName, _ = cmd.Flags().GetString("event-name")

		c := getClient(cmd)
		ctx := context.Background()

		events, err := c.ListCloudTrailEvents(ctx, filter, limit, offset)
		if err != nil {
			return fmt.Errorf("list cloudtrail events: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(events)
		} else {
			for _, ev := range events.Events {
				fmt.Printf("%s  %-30s  %-20s  %s\n", ev.EventTime.Format(time.RFC3339), ev.EventName, ev.Username, ev.SourceIP)
			}
			fmt.Printf("Total: %d\n", events.Total)
		}
		return nil
	},
}

var cloudFindingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "List collected Security Hub findings",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		filter := cloudFilterFromFlags(cmd)
		filter.Severity, _ = cmd.Flags().GetString("severity")

		c := getClient(cmd)
		ctx := context.Background()

		findings, err := c.ListSecurityHubFindings(ctx, filter, limit, offset)
		if err != nil {
			return fmt.Errorf("list findings: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(findings)
		} else {
			for _, f := range findings.Findings {
				fmt.Printf("%-10s  %-60s  %s\n", f.Severity, f.Title, f.ResourceID)
			}
			fmt.Printf("Total: %d\n", findings.Total)
		}
		return nil
	},
}

var cloudConfigCmd = &cobra.Command{
	Use:   "config-rules",
	Short: "List collected Config rule evaluations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, offset := pageFlags(cmd)
		filter := cloudFilterFromFlags(cmd)
		filter.ComplianceStatus, _ = cmd.Flags().GetString("compliance")

		c := getClient(cmd)
		ctx := context.Background()

		results, err := c.ListConfigRuleResults(ctx, filter, limit, offset)
		if err != nil {
			return fmt.Errorf("list config rule results: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(results)
		} else {
			for _, res := range results.Results {
				fmt.Printf("%-14s  %-40s  %s\n", res.ComplianceStatus, res.RuleName, res.ResourceID)
			}
			fmt.Printf("Total: %d\n", results.Total)
		}
		return nil
	},
}

var cloudImportCmd = &cobra.Command{
	Use:   "import [snapshot-file]",
	Short: "Import a collector snapshot from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		var snapshot models.CloudSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return fmt.Errorf("parse snapshot: %w", err)
		}

		c := getClient(cmd)
		if err := c.ImportCloudSnapshot(context.Background(), &snapshot); err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
		fmt.Printf("Imported snapshot for account %s\n", snapshot.AccountID)
		return nil
	},
}

func init() {
	addCloudFilterFlags(cloudS3Cmd)
	addCloudFilterFlags(cloudEC2Cmd)
	cloudEC2Cmd.Flags().String("state", "", "Filter by instance state")
	addCloudFilterFlags(cloudRDSCmd)
	addCloudFilterFlags(cloudIAMUsersCmd)
	addCloudFilterFlags(cloudIAMRolesCmd)
	addCloudFilterFlags(cloudIAMPoliciesCmd)
	addCloudFilterFlags(cloudEventsCmd)
	cloudEventsCmd.Flags().String("event-name", "", "Filter by event name")
	addCloudFilterFlags(cloudFindingsCmd)
	cloudFindingsCmd.Flags().String("severity", "", "Filter by severity")
	addCloudFilterFlags(cloudConfigCmd)
	cloudConfigCmd.Flags().String("compliance", "", "Filter by compliance status")

	cloudCmd.AddCommand(cloudS3Cmd)
	cloudCmd.AddCommand(cloudEC2Cmd)
	cloudCmd.AddCommand(cloudRDSCmd)
	cloudCmd.AddCommand(cloudIAMUsersCmd)
	cloudCmd.AddCommand(cloudIAMRolesCmd)
	cloudCmd.AddCommand(cloudIAMPoliciesCmd)
	cloudCmd.AddCommand(cloudEventsCmd)
	cloudCmd.AddCommand(cloudFindingsCmd)
	cloudCmd.AddCommand(cloudConfigCmd)
	cloudCmd.AddCommand(cloudImportCmd)
	rootCmd.AddCommand(cloudCmd)
}

// ============================================================================
// Feature and Attachment Commands
// ============================================================================

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Show enabled server features",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getClient(cmd)
		features, err := c.GetFeatures(context.Background())
		if err != nil {
			return fmt.Errorf("get features: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(features)
		} else {
			fmt.Printf("search: %t\n", features.Search)
		}
		return nil
	},
}

var policyAttachCmd = &cobra.Command{
	Use:   "attach [policy-id] [file]",
	Short: "Upload a policy attachment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()

		c := getClient(cmd)
		att, err := c.UploadPolicyAttachment(context.Background(), args[0], filepath.Base(args[1]), f)
		if err != nil {
			return fmt.Errorf("upload attachment: %w", err)
		}

		if jsonOutput(cmd) {
			printJSON(att)
		} else {
			fmt.Printf("Uploaded %s (%d bytes) to policy %s\n", att.FileName, att.SizeBytes, att.PolicyID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)
	policyCmd.AddCommand(policyAttachCmd)
}
