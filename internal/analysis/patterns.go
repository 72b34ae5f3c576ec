package analysis

import (
	"regexp"

	"skillguard/internal/finding"
)

// Categories assigned to code findings. The risk scorer weighs the well-known
// ones by name; anything else falls back to its severity weight.
const (
	CategoryShellExecution    = "Shell Execution"
	CategoryCodeInjection     = "Code Injection"
	CategoryFileWrite         = "File Write"
	CategoryFileDelete        = "File Delete"
	CategoryFilePermissions   = "File Permissions"
	CategoryDeserialization   = "Deserialization"
	CategoryUnsafeCode        = "Unsafe Code"
	CategoryNetworkAccess     = "Network Access"
	CategoryObfuscation       = "Obfuscation"
	CategoryEnvironmentAccess = "Environment Access"
)

type pattern struct {
	re          *regexp.Regexp
	category    string
	severity    finding.Severity
	description string
}

// Patterns are grouped per language and checked in order. Within a language
// the alternations are arranged so one API family matches one pattern only.

var jsPatterns = []pattern{
	{regexp.MustCompile(`(?:require\s*\(\s*|from\s+)["']child_process["']`), CategoryShellExecution, finding.SeverityCritical, "Uses the child_process module to spawn system processes"},
	{regexp.MustCompile(`\b(?:execSync|execFileSync|spawnSync)\s*\(`), CategoryShellExecution, finding.SeverityCritical, "Executes a system command synchronously"},
	{regexp.MustCompile(`\beval\s*\(`), CategoryCodeInjection, finding.SeverityCritical, "Evaluates dynamically built code"},
	{regexp.MustCompile(`new\s+Function\s*\(`), CategoryCodeInjection, finding.SeverityCritical, "Constructs a function from strings"},
	{regexp.MustCompile(`\bvm\.runIn(?:Context|NewContext|ThisContext)\s*\(`), CategoryCodeInjection, finding.SeverityCritical, "Runs code through the vm module"},
	{regexp.MustCompile(`\bfs(?:\.promises)?\.(?:writeFile|writeFileSync|appendFile|appendFileSync|createWriteStream)\s*\(`), CategoryFileWrite, finding.SeverityHigh, "Writes to the filesystem"},
	{regexp.MustCompile(`\bfs(?:\.promises)?\.(?:unlink|unlinkSync|rm|rmSync|rmdir|rmdirSync)\s*\(|\brimraf\b`), CategoryFileDelete, finding.SeverityHigh, "Deletes files or directories"},
	{regexp.MustCompile(`\bfs\.(?:chmod|chmodSync|chown|chownSync)\s*\(`), CategoryFilePermissions, finding.SeverityHigh, "Changes file permissions or ownership"},
	{regexp.MustCompile(`\bhttps?\.(?:request|get)\s*\(|new\s+WebSocket\s*\(|\bnet\.(?:connect|createConnection)\s*\(`), CategoryNetworkAccess, finding.SeverityMedium, "Opens a network connection"},
	{regexp.MustCompile(`\b(?:fetch|axios)\s*[.(]`), CategoryNetworkAccess, finding.SeverityMedium, "Makes an HTTP request"},
	{regexp.MustCompile(`Buffer\.from\s*\([^)]*,\s*["']base64["']\s*\)|\batob\s*\(`), CategoryObfuscation, finding.SeverityMedium, "Decodes base64 data"},
	{regexp.MustCompile(`String\.fromCharCode\s*\((?:\s*\d+\s*,){9,}`), CategoryObfuscation, finding.SeverityMedium, "Builds a string from a long character-code sequence"},
	{regexp.MustCompile(`(?:\\x[0-9a-fA-F]{2}){8,}`), CategoryObfuscation, finding.SeverityMedium, "Long hex-escaped string literal"},
	{regexp.MustCompile(`\bprocess\.env\b`), CategoryEnvironmentAccess, finding.SeverityLow, "Reads environment variables"},
}

var pyPatterns = []pattern{
	{regexp.MustCompile(`\bos\.(?:system|popen)\s*\(|\bsubprocess\.(?:run|call|check_call|check_output|Popen)\s*\(`), CategoryShellExecution, finding.SeverityCritical, "Executes a system command"},
	{regexp.MustCompile(`\beval\s*\(|\bexec\s*\(|__import__\s*\(`), CategoryCodeInjection, finding.SeverityCritical, "Evaluates dynamically built code"},
	{regexp.MustCompile(`\bopen\s*\([^)]*,\s*["'][wa]\+?b?["']`), CategoryFileWrite, finding.SeverityHigh, "Opens a file for writing"},
	{regexp.MustCompile(`\bos\.(?:remove|unlink|rmdir)\s*\(|\bshutil\.rmtree\s*\(`), CategoryFileDelete, finding.SeverityHigh, "Deletes files or directories"},
	{regexp.MustCompile(`\bos\.(?:chmod|chown)\s*\(`), CategoryFilePermissions, finding.SeverityHigh, "Changes file permissions or ownership"},
	{regexp.MustCompile(`\bpickle\.loads?\s*\(|\bmarshal\.loads?\s*\(|\byaml\.load\s*\(`), CategoryDeserialization, finding.SeverityHigh, "Deserializes untrusted data"},
	{regexp.MustCompile(`\brequests\.(?:get|post|put|delete)\s*\(|\burllib\.request\b|\bsocket\.socket\s*\(|\bhttp\.client\b`), CategoryNetworkAccess, finding.SeverityMedium, "Opens a network connection"},
	{regexp.MustCompile(`\bbase64\.b64decode\s*\(|\bcodecs\.decode\s*\(`), CategoryObfuscation, finding.SeverityMedium, "Decodes encoded data"},
	{regexp.MustCompile(`\bos\.environ\b|\bos\.getenv\s*\(`), CategoryEnvironmentAccess, finding.SeverityLow, "Reads environment variables"},
}

var goPatterns = []pattern{
	{regexp.MustCompile(`\bexec\.Command(?:Context)?\s*\(|\bsyscall\.Exec\s*\(`), CategoryShellExecution, finding.SeverityCritical, "Executes a system command"},
	{regexp.MustCompile(`\bos\.WriteFile\s*\(|\bioutil\.WriteFile\s*\(|\bos\.Create\s*\(`), CategoryFileWrite, finding.SeverityHigh, "Writes to the filesystem"},
	{regexp.MustCompile(`\bos\.Remove(?:All)?\s*\(`), CategoryFileDelete, finding.SeverityHigh, "Deletes files or directories"},
	{regexp.MustCompile(`\bos\.(?:Chmod|Chown)\s*\(`), CategoryFilePermissions, finding.SeverityHigh, "Changes file permissions or ownership"},
	{regexp.MustCompile(`\bunsafe\.Pointer\b`), CategoryUnsafeCode, finding.SeverityHigh, "Bypasses type safety with unsafe pointers"},
	{regexp.MustCompile(`\bhttp\.(?:Get|Post|PostForm)\s*\(|\bhttp\.NewRequest(?:WithContext)?\s*\(|\bnet\.Dial\s*\(`), CategoryNetworkAccess, finding.SeverityMedium, "Opens a network connection"},
	{regexp.MustCompile(`\bos\.(?:Getenv|LookupEnv|Environ)\s*\(`), CategoryEnvironmentAccess, finding.SeverityLow, "Reads environment variables"},
}

var javaPatterns = []pattern{
	{regexp.MustCompile(`Runtime\.getRuntime\s*\(\s*\)\s*\.exec|new\s+ProcessBuilder`), CategoryShellExecution, finding.SeverityCritical, "Executes a system command"},
	{regexp.MustCompile(`Class\.forName\s*\(`), CategoryCodeInjection, finding.SeverityCritical, "Loads classes reflectively"},
	{regexp.MustCompile(`\bInitialContext\b|["']ldap://`), CategoryCodeInjection, finding.SeverityHigh, "Performs a JNDI lookup"},
	{regexp.MustCompile(`new\s+(?:FileWriter|FileOutputStream)\s*\(|Files\.write\s*\(`), CategoryFileWrite, finding.SeverityHigh, "Writes to the filesystem"},
	{regexp.MustCompile(`Files\.delete(?:IfExists)?\s*\(`), CategoryFileDelete, finding.SeverityHigh, "Deletes files or directories"},
	{regexp.MustCompile(`new\s+ObjectInputStream\b|\.readObject\s*\(`), CategoryDeserialization, finding.SeverityHigh, "Deserializes untrusted data"},
	{regexp.MustCompile(`new\s+URL\s*\(|\.openConnection\s*\(|new\s+Socket\s*\(`), CategoryNetworkAccess, finding.SeverityMedium, "Opens a network connection"},
	{regexp.MustCompile(`System\.(?:getenv|getProperty)\s*\(`), CategoryEnvironmentAccess, finding.SeverityLow, "Reads environment variables or system properties"},
}

var cPatterns = []pattern{
	{regexp.MustCompile(`\bsystem\s*\(|\bpopen\s*\(|\bexec[lv][pe]?\s*\(`), CategoryShellExecution, finding.SeverityCritical, "Executes a system command"},
	{regexp.MustCompile(`\bgets\s*\(`), CategoryUnsafeCode, finding.SeverityCritical, "Reads input with gets, which cannot bound the buffer"},
	{regexp.MustCompile(`\b(?:strcpy|strcat|sprintf|vsprintf)\s*\(`), CategoryUnsafeCode, finding.SeverityHigh, "Unbounded string operation"},
	{regexp.MustCompile(`\bmemcpy\s*\(`), CategoryUnsafeCode, finding.SeverityHigh, "Raw memory copy"},
	{regexp.MustCompile(`\bfopen\s*\([^)]*,\s*"[wa]`), CategoryFileWrite, finding.SeverityHigh, "Opens a file for writing"},
	{regexp.MustCompile(`\b(?:remove|unlink)\s*\(`), CategoryFileDelete, finding.SeverityHigh, "Deletes files"},
	{regexp.MustCompile(`\bprintf\s*\(\s*[A-Za-z_][A-Za-z0-9_]*\s*\)`), CategoryCodeInjection, finding.SeverityMedium, "printf with a non-literal format string"},
	{regexp.MustCompile(`\bsocket\s*\(|\bconnect\s*\(`), CategoryNetworkAccess, finding.SeverityMedium, "Opens a network connection"},
	{regexp.MustCompile(`\bgetenv\s*\(`), CategoryEnvironmentAccess, finding.SeverityLow, "Reads environment variables"},
}

var rustPatterns = []pattern{
	{regexp.MustCompile(`Command::new\s*\(`), CategoryShellExecution, finding.SeverityCritical, "Executes a system command"},
	{regexp.MustCompile(`\bunsafe\s*\{`), CategoryUnsafeCode, finding.SeverityHigh, "Enters an unsafe block"},
	{regexp.MustCompile(`\btransmute\b`), CategoryUnsafeCode, finding.SeverityHigh, "Reinterprets memory with transmute"},
	{regexp.MustCompile(`\bfs::write\s*\(|File::create\s*\(`), CategoryFileWrite, finding.SeverityHigh, "Writes to the filesystem"},
	{regexp.MustCompile(`\bfs::remove_(?:file|dir|dir_all)\s*\(`), CategoryFileDelete, finding.SeverityHigh, "Deletes files or directories"},
	{regexp.MustCompile(`set_permissions\s*\(|PermissionsExt`), CategoryFilePermissions, finding.SeverityHigh, "Changes file permissions"},
	{regexp.MustCompile(`TcpStream::connect\s*\(|UdpSocket::bind\s*\(|\breqwest::`), CategoryNetworkAccess, finding.SeverityMedium, "Opens a network connection"},
	{regexp.MustCompile(`\benv::var(?:_os)?\s*\(|std::env::vars`), CategoryEnvironmentAccess, finding.SeverityLow, "Reads environment variables"},
}

var shellPatterns = []pattern{
	{regexp.MustCompile(`(?i)\b(?:curl|wget)\b[^;\n&|]*\|\s*(?:bash|sh|zsh|python|perl|ruby|php|node)\b`), CategoryShellExecution, finding.SeverityCritical, "Pipes a download straight into an interpreter"},
	{regexp.MustCompile(`(?i)\bnc\b[^\n]*(?:-e\b|--exec\b)`), CategoryShellExecution, finding.SeverityCritical, "Netcat with command execution"},
	{regexp.MustCompile(`(?i)\b(?:rm|cat|cp|mv)\b[^\n]*(?:\.ssh|\.aws|\.npmrc|/etc/passwd|/etc/shadow)`), CategoryShellExecution, finding.SeverityCritical, "Shell command touching credential stores"},
	{regexp.MustCompile(`(?i)\brm\s+-[a-z]*[rf][a-z]*\s+(?:[/~*]|"\$)`), CategoryFileDelete, finding.SeverityCritical, "Recursive forced deletion near the filesystem root"},
	{regexp.MustCompile(`\beval\s+["$]`), CategoryCodeInjection, finding.SeverityCritical, "Evaluates dynamically built shell code"},
	{regexp.MustCompile(`\bchmod\s+(?:-R\s+)?0?777\b`), CategoryFilePermissions, finding.SeverityHigh, "Makes files world-writable"},
	{regexp.MustCompile(`\bbase64\s+(?:-d|--decode)\b`), CategoryObfuscation, finding.SeverityMedium, "Decodes base64 data"},
	{regexp.MustCompile(`\b(?:curl|wget)\s+(?:-[a-zA-Z-]+\s+)*["']?https?://`), CategoryNetworkAccess, finding.SeverityMedium, "Downloads from the network"},
	{regexp.MustCompile(`\$\{?[A-Z_]*(?:KEY|TOKEN|SECRET|PASSWORD|CREDENTIAL)[A-Z_]*\b`), CategoryEnvironmentAccess, finding.SeverityLow, "Expands a credential-looking environment variable"},
}

var languagePatterns = map[string][]pattern{
	"JavaScript": jsPatterns,
	"TypeScript": jsPatterns,
	"Python":     pyPatterns,
	"Go":         goPatterns,
	"Java":       javaPatterns,
	"C":          cPatterns,
	"C++":        cPatterns,
	"Rust":       rustPatterns,
	"Shell":      shellPatterns,
}

// extLanguages maps file extensions to the language label used in findings.
var extLanguages = map[string]string{
	".js":   "JavaScript",
	".jsx":  "JavaScript",
	".mjs":  "JavaScript",
	".cjs":  "JavaScript",
	".ts":   "TypeScript",
	".tsx":  "TypeScript",
	".py":   "Python",
	".go":   "Go",
	".java": "Java",
	".c":    "C",
	".h":    "C",
	".cpp":  "C++",
	".cc":   "C++",
	".hpp":  "C++",
	".rs":   "Rust",
	".sh":   "Shell",
	".bash": "Shell",
}
