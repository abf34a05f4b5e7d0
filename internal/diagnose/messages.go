// v0
// internal/diagnose/messages.go
package diagnose

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Catalog keys. Each one has a zh-Hans and an en rendering.
const (
	msgCredentials      = "diagnose.credentials"
	msgMissingProcedure = "diagnose.missing_procedure"
	msgPermission       = "diagnose.permission"
	msgMissingConfig    = "diagnose.missing_config"
	msgMissingEndpoint  = "diagnose.missing_endpoint"
	msgNetwork          = "diagnose.network"
	msgGenericRPC       = "diagnose.generic_rpc %s"
	msgGenericFunction  = "diagnose.generic_function %s"
	msgUnexpectedShape  = "diagnose.unexpected_shape"
)

var supported = []language.Tag{language.SimplifiedChinese, language.English}

var translations = map[language.Tag]map[string]string{
	language.SimplifiedChinese: {
		msgCredentials:      "API 密钥无效。请检查 Vercel 环境变量中的 NEXT_PUBLIC_SUPABASE_ANON_KEY 是否正确配置。",
		msgMissingProcedure: "PostgreSQL 函数 \"get_leaderboard\" 未找到。请确保已在 Supabase 数据库中创建该函数。",
		msgPermission:       "没有权限调用该函数。请检查数据库权限设置。",
		msgMissingConfig:    "环境变量未配置。请在 Vercel 设置中添加 NEXT_PUBLIC_SUPABASE_URL 和 NEXT_PUBLIC_SUPABASE_ANON_KEY。",
		msgMissingEndpoint:  "Edge Function \"get_leaderboard\" 未部署。请先部署该函数。",
		msgNetwork:          "无法连接到 Supabase。请检查网络连接以及 NEXT_PUBLIC_SUPABASE_URL 是否正确。",
		msgGenericRPC:       "数据库函数错误: %s",
		msgGenericFunction:  "Edge Function 错误: %s",
		msgUnexpectedShape:  "返回的数据格式不正确。期望格式: {leaderboard: [...]} 或 [...]",
	},
	language.English: {
		msgCredentials:      "Invalid API key. Check that NEXT_PUBLIC_SUPABASE_ANON_KEY is configured correctly in the environment.",
		msgMissingProcedure: "PostgreSQL function \"get_leaderboard\" not found. Make sure it has been created in the Supabase database.",
		msgPermission:       "Not allowed to call the function. Check the database permission settings.",
		msgMissingConfig:    "Environment variables are not configured. Set NEXT_PUBLIC_SUPABASE_URL and NEXT_PUBLIC_SUPABASE_ANON_KEY.",
		msgMissingEndpoint:  "Edge Function \"get_leaderboard\" is not deployed. Deploy it first.",
		msgNetwork:          "Could not reach Supabase. Check the network connection and NEXT_PUBLIC_SUPABASE_URL.",
		msgGenericRPC:       "Database function error: %s",
		msgGenericFunction:  "Edge Function error: %s",
		msgUnexpectedShape:  "Unexpected response format. Expected {leaderboard: [...]} or [...]",
	},
}

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.SimplifiedChinese))
	for tag, entries := range translations {
		for key, text := range entries {
			// Keys and texts are static, SetString only fails on malformed input.
			if err := b.SetString(tag, key, text); err != nil {
				panic(err)
			}
		}
	}
	return b
}

var messages = newCatalog()

// matchLocale picks the supported tag closest to locale, defaulting to
// Simplified Chinese.
func matchLocale(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.SimplifiedChinese
	}
	_, idx, conf := language.NewMatcher(supported).Match(tag)
	if conf == language.No {
		return language.SimplifiedChinese
	}
	return supported[idx]
}

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}
