package core

// Default recognition config constants
const (
	DefaultProvider     = "硅基流动"
	DefaultAPIBaseURL   = "https://api.siliconflow.cn/v1"
	DefaultModelName    = "Qwen/Qwen2.5-VL-72B-Instruct"
	DefaultSystemPrompt = `你是一个专业的数学公式识别系统，请严格按照以下要求操作：
1. 专注识别图像中的数学公式、符号、希腊字母、运算符等
2. 输出标准LaTeX代码，确保可被编译器解析
3. 所有公式必须转换为单行格式（禁止使用\begin{align}等多行环境）
4. 多行公式用空格分隔或合并为单行
5. 不添加解释性文字，直接输出纯净的LaTeX代码`
)

// Recognition request constants
const (
	RecognitionInstruction = "请识别图像中的数学公式，输出纯净的LaTeX代码"
	RecognitionMaxTokens   = 1024
	ProbeMessage           = "Hello, this is a test message."
	ProbeMaxTokens         = 10
	DefaultTemperature     = 0.2
)

// Connection validation constants
const (
	MinAPIKeyLength   = 10
	SchemeHTTPPrefix  = "http://"
	SchemeHTTPSPrefix = "https://"
)

// Image normalization constants
const (
	LumaWeightRed      = 299
	LumaWeightGreen    = 587
	LumaWeightBlue     = 114
	LumaWeightTotal    = 1000
	InversionThreshold = 128
	MaxChannelValue    = 255
	RGBChannels        = 3
	PNGDataURIPrefix   = "data:image/png;base64,"
)

// Default server config constants
const (
	DefaultPort    = "7860"
	DefaultGinMode = "release"
	CORSMaxAge     = "86400"
	AppConfigDir   = "AiTex"
	ConfigFileName = "config.json"
)
