package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags, e.g.
// -X github.com/tartampluch/go-dailydash/internal/config.BuildDate=2024-06-15.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-DailyDash/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName        = "Go DailyDash"
	AppID          = "com.github.tartampluch.go-dailydash"
	KeyringService = "com.github.tartampluch.go-dailydash"
	KeyringUser    = "anthropic"
	LogFileName    = "dailydash.log"
	EnvFileName    = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1

	// ExitCodeNoContent signals that the AI service never produced usable
	// content. Nothing was published and the previous artifact still stands.
	ExitCodeNoContent = 2
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs.
	FilePermUserRW fs.FileMode = 0600

	// FilePermPublic represents -rw-r--r--. Published artifacts are read by
	// the display front-end, which may run as another user.
	FilePermPublic fs.FileMode = 0644

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	// Used for creating secure cache directories.
	DirPermUserRWX fs.FileMode = 0700

	// DirPermPublic represents drwxr-xr-x, for artifact directories.
	DirPermPublic fs.FileMode = 0755

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Environment
// -----------------------------------------------------------------------------

const (
	CmdGenerate = "generate"
	CmdPrompt   = "prompt"
	CmdServe    = "serve"

	FlagVersion     = "version"
	FlagDebug       = "debug"
	FlagConfig      = "config"
	FlagConfigShort = "c"
	FlagAddr        = "addr"

	FlagDescVersion = "Show application version and exit"
	FlagDescDebug   = "Enable debug logging to stdout"
	FlagDescConfig  = "Path to the YAML settings file"
	FlagDescAddr    = "Listen address for the artifact server"

	MsgVersionOutput = "%s version %s (commit %s, built %s, %s/%s)\n"
	MsgUsage         = "Usage: dailydash [generate|prompt|serve] [flags]\n"

	EnvConfigPath = "DAILYDASH_CONFIG"
	EnvAPIKey     = "ANTHROPIC_API_KEY"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultConfigPath   = "config.yaml"
	DefaultDataFile     = "dashboard_data.json"
	DefaultDaysAhead    = 14
	DefaultModel        = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens    = 2048
	DefaultServeAddr    = "127.0.0.1:18080"
	DefaultAPIBaseURL   = "https://api.anthropic.com"
	DefaultAPIVersion   = "2023-06-01"
	DefaultLanguage     = "en"
	DefaultLeapYear     = 2000 // Leap year fallback for dates like --02-29
	MaxAIAttempts       = 3
	CelebrationWindow   = 7 // Birthdays within this many days are celebrated prominently
	UIDSalt             = "go-dailydash-v1-"
	FallbackSummary     = "Untitled"
	BirthdayEmoji       = "🎂"
	BirthdayTitleFormat = "%s's Birthday"
	SystemPromptVersion = "2"
)

// ISO8601 duration prefixes accepted for ics_reminder.
const (
	ISOPeriodPrefix   = "P"
	ISONegativePrefix = "-P"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go DailyDash//Countdowns//EN"
	ICalCalName   = "Family Countdowns"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "dailydash"

	// iCal/vCard Fields
	PropUID          = "UID"
	PropSummary      = "SUMMARY"
	PropDTStart      = "DTSTART"
	PropDTStamp      = "DTSTAMP"
	PropRefresh      = "REFRESH-INTERVAL"
	PropAction       = "ACTION"
	PropDescription  = "DESCRIPTION"
	PropTrigger      = "TRIGGER"
	PropVersion      = "VERSION"
	PropProdid       = "PRODID"
	PropXWRCalName   = "X-WR-CALNAME"
	PropCalScale     = "CALSCALE"
	PropMethod       = "METHOD"
	PropStatus       = "STATUS"
	PropRecurrenceID = "RECURRENCE-ID"

	StatusCancelled = "CANCELLED"
	MailtoPrefix    = "mailto:"

	VCardBDAY   = "BDAY"
	VCardFN     = "FN"
	VCardGender = "GENDER"
	VCardNote   = "NOTE"
	VCardPhoto  = "PHOTO"

	VCardEncoding = "ENCODING"
	DataURIPrefix = "data:"
	SexMale       = "male"
	SexFemale     = "female"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is served when there is nothing to export. Calendar
	// clients reject a VCALENDAR without any component.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nX-WR-CALNAME:" + ICalCalName + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// Layouts used in prompts and the published document
	DateFormatEventTimed  = "Monday, January 02 at 03:04 PM"
	DateFormatEventAllDay = "Monday, January 02"
	DateFormatTodayLong   = "Monday, January 02, 2006"
	DateFormatToday       = "Monday, January 02"
	DateFormatMonthDay    = "January 02"
	DateFormatISODate     = "2006-01-02"

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	// Temporary artifact files are hidden and carry the target's name.
	TempFilePattern = ".%s-*.tmp"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	AITimeout           = 120 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "60"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 16 * 1024 * 1024 // 16MB
	MaxErrorBodySize    = 4096
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	RouteDashboard      = "/dashboard.json"
	RouteCountdowns     = "/countdowns.ics"
	MessagesPath        = "/v1/messages"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType      = "Content-Type"
	HeaderCacheControl     = "Cache-Control"
	HeaderETag             = "ETag"
	HeaderLastModified     = "Last-Modified"
	HeaderRetryAfter       = "Retry-After"
	HeaderAllow            = "Allow"
	HeaderXContentType     = "X-Content-Type-Options"
	HeaderUserAgent        = "User-Agent"
	HeaderIfNoneMatch      = "If-None-Match"
	HeaderIfModifiedSince  = "If-Modified-Since"
	HeaderAPIKey           = "X-Api-Key"
	HeaderAnthropicVersion = "Anthropic-Version"

	MimeJSON            = "application/json"
	MimeJSONUTF8        = "application/json; charset=utf-8"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrConfigRead       = "failed to read settings file"
	ErrConfigParse      = "failed to parse settings file"
	ErrConfigInvalid    = "invalid settings"
	ErrEnvLoad          = "failed to load .env file"
	ErrAPIKeyMissing    = "no API key in environment or keyring"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrProviderMissing  = "internal error: AI provider is not initialized"
	ErrICalParse        = "failed to parse iCalendar stream"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrDateParse        = "unable to parse date"
	ErrMonthDay         = "invalid month/day"
	ErrRosterRead       = "failed to read vCard roster"
	ErrEmptyChoices     = "chore has no candidate assignees"
	ErrMissingDOB       = "person has no date of birth"
	ErrAIResponse       = "AI response rejected"
	ErrAIEmpty          = "AI response contained no text"
	ErrAISchema         = "AI response does not match the required schema"
	ErrAIExhausted      = "AI content unavailable after all attempts"
	ErrEncodeDocument   = "failed to encode dashboard document"
	ErrPublish          = "failed to publish artifact"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create app cache dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrAddrRequired     = "server listen address is required"
	ErrWriteResp        = "failed to write response body"
	ErrArtifactRead     = "failed to read artifact"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrUnknownCommand   = "unknown command"
	ErrAIRequestCreate  = "failed to create AI request"
	ErrAIRequestSend    = "failed to send AI request"
	ErrAIRequestEncode  = "failed to encode AI request"
	ErrAIResponseDecode = "failed to decode AI response"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Dashboard not generated yet, please try again later."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgNotFound     = "Not Found"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting      = "Starting application"
	MsgAppStop          = "Application stopped"
	MsgRunStarted       = "Generation run started"
	MsgRunFinished      = "Generation run finished"
	MsgICSExportFailed  = "Countdown calendar export failed, dashboard already published"
	MsgCalendarSkipped  = "No calendar URL configured, skipping calendar fetch"
	MsgCalendarFetchErr = "Failed to fetch calendar"
	MsgCalendarParseErr = "Failed to parse iCal data"
	MsgCalendarFetched  = "Calendar events fetched"
	MsgSkippedEvent     = "Skipping event without usable start"
	MsgSkippedCard      = "Skipping malformed vCard"
	MsgSkippedDate      = "Skipping vCard without full birth date"
	MsgSkippedDuplicate = "Skipping vCard already present in roster"
	MsgRosterImported   = "Roster imported from vCard"
	MsgContextBuilt     = "Daily context built"
	MsgBdayToday        = "Birthday found today"
	MsgPromptBuilt      = "Prompt built"
	MsgAICalling        = "Calling AI service"
	MsgAIAttemptFailed  = "AI attempt failed"
	MsgAIAccepted       = "AI content accepted"
	MsgAIExhausted      = "All AI attempts failed, preserving previous dashboard data"
	MsgPublished        = "Artifact published"
	MsgServerListen     = "HTTP server listening"
	MsgServerStop       = "Shutting down HTTP server..."
	MsgCacheUpdated     = "Artifact cache updated"
	MsgLocaleSkip       = "Skipping non-locale file"
	MsgLocaleLoaded     = "Locale loaded successfully"
	MsgTransMissing     = "Missing translation key"
	MsgKeyringFail      = "API key retrieval from keyring failed"
	MsgEnvLoaded        = "Environment file loaded"
	MsgLogWarning       = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyCountdownToday    = "countdown_today"
	TKeyCountdownTomorrow = "countdown_tomorrow"
	TKeyCountdownDays     = "countdown_days" // Requires Count
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyPath      = "path"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyAddr      = "addr"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyDOB       = "date_of_birth"
	LogKeyDuration  = "duration_ms"
	LogKeyAttempt   = "attempt"
	LogKeyModel     = "model"
	LogKeyMaxTokens = "max_tokens"
	LogKeyPromptVer = "prompt_version"
	LogKeyChars     = "characters"
	LogKeyDaysAhead = "days_ahead"
	LogKeyFiltered  = "filtered_out"
	LogKeyCalStatus = "calendar_status"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyDate      = "date"
	LogKeyPeople    = "people"
	LogKeyChores    = "chores"
	LogKeyEvents    = "events"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "people_found"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyBuilt   = "build_date"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
	LogKeyCommand = "command"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine    = "engine"
	CompCalendar  = "calendar"
	CompFetcher   = "fetcher"
	CompRoster    = "roster"
	CompGateway   = "gateway"
	CompLLM       = "llm"
	CompPublisher = "publisher"
	CompServer    = "server"
	CompConfig    = "config"
	CompMain      = "main"
	CompI18n      = "i18n"
)
