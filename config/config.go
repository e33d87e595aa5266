package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/joho/godotenv"
)

// OnExistingWeek policies. "skip" leaves an already-populated week untouched;
// "reconcile" re-resolves every card and updates non-key lesson fields.
const (
	OnExistingWeekSkip      = "skip"
	OnExistingWeekReconcile = "reconcile"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// EduPage source
	EdupageBaseURL   string
	EdupageSessionID string
	EdupageYear      int

	// Scrape behaviour
	ScrapeCron     string
	ScrapeOnStart  bool
	OnExistingWeek string
	FetchTimeout   time.Duration
	FetchRetries   int

	// AWS S3 payload archive
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3BucketName       string
	ArchivePayloads    bool

	// Server
	Port   string
	AppEnv string

	// Logging
	LogLevel string
	LogFile  string

	// Feature Toggles
	SkipMigrate bool
}

func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
}

var AppConfig *Config

func LoadConfig() {
	useSSM := getEnv("USE_SSM", "false") == "true"

	var (
		ssmClient *ssm.SSM
		paramMap  map[string]string
	)

	// Stage & base path for SSM (allows multi-env without code changes)
	basePath := getEnv("SSM_BASE_PATH", "/ptehtimetable")
	stage := getEnv("STAGE", getEnv("APP_ENV", "production"))
	basePath = strings.TrimRight(basePath, "/")
	prefix := basePath + "/" + stage

	if useSSM {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(getEnv("AWS_REGION", "eu-central-1"))})
		if err != nil {
			log.Fatal("Failed to create AWS session:", err)
		}
		ssmClient = ssm.New(sess)
		log.Printf("Using AWS SSM Parameter Store (prefix=%s)", prefix)
		paramMap = fetchSSMParameters(ssmClient, prefix)
	} else {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using environment variables")
		}
	}

	// Helper accessor respecting map / env fallback
	getVal := func(key, def string) string {
		if useSSM {
			// map key stored uppercase
			uk := strings.ToUpper(key)
			if v, ok := paramMap[uk]; ok && v != "" {
				return v
			}
		}
		return getEnv(strings.ToUpper(key), def)
	}

	fetchTimeoutStr := getVal("FETCH_TIMEOUT", "30s")
	fetchTimeout, err := time.ParseDuration(fetchTimeoutStr)
	if err != nil {
		log.Fatal("Invalid FETCH_TIMEOUT format:", err)
	}

	fetchRetriesStr := getVal("FETCH_RETRIES", "3")
	fetchRetries, err := strconv.Atoi(fetchRetriesStr)
	if err != nil || fetchRetries < 0 {
		log.Fatal("Invalid FETCH_RETRIES value:", fetchRetriesStr)
	}

	yearStr := getVal("EDUPAGE_YEAR", "2024")
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		log.Fatal("Invalid EDUPAGE_YEAR format:", err)
	}

	onExisting := strings.ToLower(getVal("ON_EXISTING_WEEK", OnExistingWeekSkip))
	if onExisting != OnExistingWeekSkip && onExisting != OnExistingWeekReconcile {
		log.Fatalf("Invalid ON_EXISTING_WEEK value %q (want %q or %q)", onExisting, OnExistingWeekSkip, OnExistingWeekReconcile)
	}

	AppConfig = &Config{
		DBHost:     getVal("DB_HOST", "localhost"),
		DBPort:     getVal("DB_PORT", "3306"),
		DBUser:     getVal("DB_USER", "root"),
		DBPassword: getVal("DB_PASSWORD", ""),
		DBName:     getVal("DB_NAME", "ptehtimetable_go"),

		RedisHost:     getVal("REDIS_HOST", "localhost"),
		RedisPort:     getVal("REDIS_PORT", "6379"),
		RedisPassword: getVal("REDIS_PASSWORD", ""),

		EdupageBaseURL:   getVal("EDUPAGE_BASE_URL", "https://pteh.edupage.org"),
		EdupageSessionID: getVal("EDUPAGE_SESSION_ID", ""),
		EdupageYear:      year,

		ScrapeCron:     getVal("SCRAPE_CRON", "0 5 * * *"),
		ScrapeOnStart:  strings.ToLower(getVal("SCRAPE_ON_START", "false")) == "true",
		OnExistingWeek: onExisting,
		FetchTimeout:   fetchTimeout,
		FetchRetries:   fetchRetries,

		AWSRegion:          getVal("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:     getVal("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getVal("AWS_SECRET_ACCESS_KEY", ""),
		S3BucketName:       getVal("S3_BUCKET_NAME", "ptehtimetable-storage"),
		ArchivePayloads:    strings.ToLower(getVal("ARCHIVE_PAYLOADS", "false")) == "true",

		Port:   getVal("PORT", "3000"),
		AppEnv: getVal("APP_ENV", "development"),

		LogLevel: getVal("LOG_LEVEL", "info"),
		LogFile:  getVal("LOG_FILE", "logs/app.log"),

		SkipMigrate: strings.ToLower(getVal("SKIP_MIGRATE", "false")) == "true",
	}

	validateConfig(AppConfig, useSSM)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// fetchSSMParameters reads all parameters under prefix (non-recursive expected) and returns map with UPPERCASE keys.
func fetchSSMParameters(client *ssm.SSM, prefix string) map[string]string {
	out := make(map[string]string)
	next := aws.String("")
	for {
		in := &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			WithDecryption: aws.Bool(true),
			Recursive:      aws.Bool(true),
		}
		if *next != "" {
			in.NextToken = next
		}
		resp, err := client.GetParametersByPath(in)
		if err != nil {
			log.Printf("Warning: unable to fetch SSM parameters for prefix %s: %v", prefix, err)
			break
		}
		for _, p := range resp.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			name := *p.Name
			// last segment after '/'
			idx := strings.LastIndex(name, "/")
			key := name
			if idx >= 0 {
				key = name[idx+1:]
			}
			if key == "" {
				continue
			}
			out[strings.ToUpper(key)] = *p.Value
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			break
		}
		next = resp.NextToken
	}
	return out
}

func validateConfig(c *Config, usedSSM bool) {
	// Only enforce stricter rules in production
	if strings.ToLower(c.AppEnv) != "production" {
		return
	}
	// Required secrets. The EduPage session cookie rotates; in production it
	// is expected to come from SSM so a refresh needs no redeploy.
	required := map[string]string{
		"DB_PASSWORD":        c.DBPassword,
		"EDUPAGE_SESSION_ID": c.EdupageSessionID,
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			log.Fatalf("Missing required secret %s in production (SSM=%v)", k, usedSSM)
		}
	}
}
