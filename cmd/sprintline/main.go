// Command sprintline is the Sprintline CLI client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sprintline/sprintline/internal/version"
)

const defaultServer = "http://localhost:8080"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "sprintline server URL")
		token     = flag.String("token", os.Getenv("SPRINTLINE_TOKEN"), "JWT auth token")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		Token:      *token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "tasks":
		err = cli.cmdTasks(rest)
	case "task":
		err = cli.cmdTask(rest)
	case "sprints":
		err = cli.cmdSprints(rest)
	case "sprint":
		err = cli.cmdSprint(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `sprintline — Sprintline CLI

Usage:
  sprintline [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:8080)
  --token   <token>  JWT auth token (or $SPRINTLINE_TOKEN)

Commands:
  version                       print version
  status                        show server status
  tasks                         list tasks
  task create <project> <title> create a task in a project (by id)
  task status <key> <status_id> change a task's status
  task sla <key>                show a task's accrued SLA time
  sprints                       list sprints
  sprint activate <id>          activate a sprint
  sprint complete <id>          complete a sprint
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("sprintline %s (commit %s)\n", version.Version, version.Commit)
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// get performs a GET and decodes JSON into v.
func (c *Client) get(path string, v any) error {
	return c.do(http.MethodGet, path, nil, v)
}

// post performs a POST and decodes JSON response into v (may be nil).
func (c *Client) post(path string, body io.Reader, v any) error {
	return c.do(http.MethodPost, path, body, v)
}

// put performs a PUT and decodes JSON response into v (may be nil).
func (c *Client) put(path string, body io.Reader, v any) error {
	return c.do(http.MethodPut, path, body, v)
}

func (c *Client) do(method, path string, body io.Reader, v any) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v != nil && resp.ContentLength != 0 {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]string
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", result["status"])
	fmt.Printf("version: %s\n", result["version"])
	return nil
}

// --- tasks ---

func (c *Client) cmdTasks(_ []string) error {
	var tasks []map[string]any
	if err := c.get("/api/tasks", &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-10s %-40s %-12s %-8s\n", "KEY", "TITLE", "STATUS", "PRIORITY")
	fmt.Println(strings.Repeat("-", 74))
	for _, t := range tasks {
		fmt.Printf("%-10s %-40s %-12s %-8s\n",
			strVal(t["task_key"]),
			truncate(strVal(t["title"]), 39),
			strVal(t["status"]),
			strVal(t["priority"]),
		)
	}
	return nil
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: sprintline task <create|status|sla> ...")
		os.Exit(1)
	}
	sub := args[0]
	switch sub {
	case "create":
		if len(args) < 3 {
			return fmt.Errorf("usage: sprintline task create <project_id> <title>")
		}
		title := strings.Join(args[2:], " ")
		body := fmt.Sprintf(`{"project_id":%s,"title":%q}`, args[1], title)
		var result map[string]any
		if err := c.post("/api/tasks", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created task %s\n", strVal(result["task_key"]))
	case "status":
		if len(args) < 3 {
			return fmt.Errorf("usage: sprintline task status <key> <status_id>")
		}
		body := fmt.Sprintf(`{"status_id":%s}`, args[2])
		var result map[string]any
		if err := c.put("/api/tasks/"+args[1]+"/status", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", strVal(result["task_key"]), strVal(result["status"]))
	case "sla":
		if len(args) < 2 {
			return fmt.Errorf("usage: sprintline task sla <key>")
		}
		var result map[string]any
		if err := c.get("/api/tasks/"+args[1]+"/sla", &result); err != nil {
			return err
		}
		fmt.Printf("status:      %s\n", strVal(result["status"]))
		fmt.Printf("accumulated: %s min\n", strVal(result["accumulated_time"]))
		fmt.Printf("total:       %s min\n", strVal(result["total_time"]))
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

// --- sprints ---

func (c *Client) cmdSprints(_ []string) error {
	var sprints []map[string]any
	if err := c.get("/api/sprints", &sprints); err != nil {
		return err
	}
	if len(sprints) == 0 {
		fmt.Println("no sprints")
		return nil
	}
	fmt.Printf("%-6s %-24s %-10s\n", "ID", "NAME", "STATUS")
	fmt.Println(strings.Repeat("-", 42))
	for _, sp := range sprints {
		fmt.Printf("%-6s %-24s %-10s\n",
			strVal(sp["id"]),
			truncate(strVal(sp["name"]), 23),
			strVal(sp["status"]),
		)
	}
	return nil
}

// --- sprint subcommands ---

func (c *Client) cmdSprint(args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sprintline sprint <activate|complete> <id>")
		os.Exit(1)
	}
	sub, id := args[0], args[1]
	switch sub {
	case "activate":
		if err := c.put("/api/sprints/"+id+"/activate", nil, nil); err != nil {
			return err
		}
		fmt.Printf("sprint %s activated\n", id)
	case "complete":
		if err := c.put("/api/sprints/"+id+"/complete", nil, nil); err != nil {
			return err
		}
		fmt.Printf("sprint %s completed\n", id)
	default:
		return fmt.Errorf("unknown sprint subcommand: %s", sub)
	}
	return nil
}

// --- helpers ---

func strVal(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
