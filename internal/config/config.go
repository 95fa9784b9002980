package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/joho/godotenv"
)

// AgentSeed describes one agent registered at startup.
type AgentSeed struct {
	ID          string
	Name        string
	Role        types.AgentRole
	Departments []types.Department
}

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// Routing surface
	Departments      []types.DepartmentInfo
	Agents           []AgentSeed
	AgentCapacity    int
	DispatchInterval time.Duration
	MinWaitEstimate  time.Duration
	WaitTimeout      time.Duration // queued longer than this escalates with agent_unavailable_timeout

	// Escalation policy
	QualityThreshold int
	MaxTurns         int

	// Conversation capability
	ConversationURL     string
	ConversationTimeout time.Duration

	// Metrics
	MetricsBucket string // hour, day or week

	// WebSocket timings
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// defaultDepartments mirrors the product's standard routing categories.
const defaultDepartments = "technical_support:Technical Support,billing:Billing and Accounts,sales:Sales Department,general:General Inquiries,complaints:Complaints and Escalations"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ConversationURL: getEnv("CONVERSATION_URL", "http://localhost:8090/generate"),
		MetricsBucket:   getEnv("METRICS_BUCKET", "hour"),
	}

	departments, err := parseDepartments(getEnv("DEPARTMENTS", defaultDepartments))
	if err != nil {
		return nil, err
	}
	config.Departments = departments

	agents, err := parseAgents(os.Getenv("AGENTS"))
	if err != nil {
		return nil, err
	}
	config.Agents = agents

	config.AgentCapacity, err = getEnvInt("AGENT_CAPACITY", 1)
	if err != nil {
		return nil, err
	}
	if config.AgentCapacity < 1 {
		return nil, fmt.Errorf("AGENT_CAPACITY must be at least 1, got %d", config.AgentCapacity)
	}

	config.QualityThreshold, err = getEnvInt("ESCALATION_QUALITY_THRESHOLD", 2)
	if err != nil {
		return nil, err
	}
	config.MaxTurns, err = getEnvInt("ESCALATION_MAX_TURNS", 10)
	if err != nil {
		return nil, err
	}

	config.DispatchInterval, err = getEnvSeconds("DISPATCH_INTERVAL", 1)
	if err != nil {
		return nil, err
	}
	config.MinWaitEstimate, err = getEnvSeconds("DISPATCH_MIN_WAIT_ESTIMATE", 30)
	if err != nil {
		return nil, err
	}
	config.WaitTimeout, err = getEnvSeconds("DISPATCH_WAIT_TIMEOUT", 300)
	if err != nil {
		return nil, err
	}
	config.ConversationTimeout, err = getEnvSeconds("CONVERSATION_TIMEOUT", 15)
	if err != nil {
		return nil, err
	}

	switch config.MetricsBucket {
	case "hour", "day", "week":
	default:
		return nil, fmt.Errorf("invalid METRICS_BUCKET %q: must be hour, day or week", config.MetricsBucket)
	}

	// Parse WebSocket timeouts
	config.WSReadTimeout, err = getEnvSeconds("WS_READ_TIMEOUT", 60)
	if err != nil {
		return nil, err
	}
	config.WSWriteTimeout, err = getEnvSeconds("WS_WRITE_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// parseDepartments parses "code:Name,code:Name" pairs.
func parseDepartments(raw string) ([]types.DepartmentInfo, error) {
	var departments []types.DepartmentInfo
	seen := make(map[types.Department]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid DEPARTMENTS entry %q: expected code:name", entry)
		}
		code := types.Department(strings.TrimSpace(parts[0]))
		if code == types.DeptSupervisor {
			return nil, fmt.Errorf("department code %q is reserved", types.DeptSupervisor)
		}
		if seen[code] {
			return nil, fmt.Errorf("duplicate department code %q", code)
		}
		seen[code] = true
		departments = append(departments, types.DepartmentInfo{
			Code: code,
			Name: strings.TrimSpace(parts[1]),
		})
	}

	if len(departments) == 0 {
		return nil, fmt.Errorf("DEPARTMENTS must define at least one department")
	}
	return departments, nil
}

// parseAgents parses "id;name;role;dept1|dept2" entries separated by commas.
func parseAgents(raw string) ([]AgentSeed, error) {
	if raw == "" {
		return nil, nil
	}

	var agents []AgentSeed
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ";")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid AGENTS entry %q: expected id;name;role;departments", entry)
		}

		role := types.AgentRole(parts[2])
		switch role {
		case types.RoleCustomerService, types.RoleRouting, types.RoleSupervisor:
		default:
			return nil, fmt.Errorf("invalid agent role %q in AGENTS entry %q", parts[2], entry)
		}

		var depts []types.Department
		for _, d := range strings.Split(parts[3], "|") {
			d = strings.TrimSpace(d)
			if d != "" {
				depts = append(depts, types.Department(d))
			}
		}
		if len(depts) == 0 {
			return nil, fmt.Errorf("AGENTS entry %q has no departments", entry)
		}

		agents = append(agents, AgentSeed{
			ID:          strings.TrimSpace(parts[0]),
			Name:        strings.TrimSpace(parts[1]),
			Role:        role,
			Departments: depts,
		})
	}
	return agents, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvSeconds(key string, defaultSecs int) (time.Duration, error) {
	secs, err := getEnvInt(key, defaultSecs)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
