package bot

import (
	"fmt"
	"strings"

	"imagebot/internal/domain"
	"imagebot/internal/imagegen"
)

type replyKey int

const (
	msgUsageGenerate replyKey = iota
	msgUsageEdit
	msgGenerated
	msgEdited
	msgFailure
)

var repliesEN = map[replyKey]string{
	msgUsageGenerate: "❌ Usage: /generate <prompt> [aspect_ratio] [resolution]",
	msgUsageEdit:     "❌ Usage: /edit <image URL or path> <prompt> (the source may be omitted when an image is attached)",
	msgGenerated:     "✅ Image generated!\n📁 %s\n🌐 %s",
	msgEdited:        "✅ Image edited!\n📁 %s\n🌐 %s",
	msgFailure:       "❌ %s: %s",
}

var repliesZH = map[replyKey]string{
	msgUsageGenerate: "❌ 用法: /generate <提示词> [宽高比] [分辨率]",
	msgUsageEdit:     "❌ 用法: /edit <图片URL/路径> <提示词>（消息附带图片时可省略来源）",
	msgGenerated:     "✅ 图像生成成功！\n📁 %s\n🌐 %s",
	msgEdited:        "✅ 图像编辑成功！\n📁 %s\n🌐 %s",
	msgFailure:       "❌ %s: %s",
}

func normalizeLocale(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "zh") {
		return "zh"
	}
	return "en"
}

func tr(locale string, key replyKey) string {
	if locale == "zh" {
		if msg, ok := repliesZH[key]; ok {
			return msg
		}
	}
	return repliesEN[key]
}

func formatSuccess(locale string, key replyKey, result *imagegen.Result) string {
	return fmt.Sprintf(tr(locale, key), result.SavedPath, result.RemoteURL)
}

func formatFailure(locale string, err error) string {
	return fmt.Sprintf(tr(locale, msgFailure), domain.Kind(err), err.Error())
}

func helpText(locale string, info HelpInfo) string {
	proxy := "❌"
	if info.ProxyConfigured {
		proxy = "✅"
	}
	if locale == "zh" {
		return fmt.Sprintf(`🎨 Grok 图像插件

📌 命令:
• /generate <提示词> [宽高比] [分辨率]
• /edit <图片URL/路径> <提示词>
• /help

支持的宽高比: %s
支持的分辨率: %s

⚙️ 设置:
• 代理: %s
• 超时: %.0f秒
• 保存目录: %s

⚠️ 图像生成需要 30-60 秒，请耐心等待`,
			strings.Join(imagegen.ValidAspectRatios, ", "),
			strings.Join(imagegen.ValidResolutions, ", "),
			proxy, info.RequestTimeout.Seconds(), info.SaveDirectory)
	}
	return fmt.Sprintf(`🎨 Grok image plugin

📌 Commands:
• /generate <prompt> [aspect_ratio] [resolution]
• /edit <image URL or path> <prompt>
• /help

Supported aspect ratios: %s
Supported resolutions: %s

⚙️ Settings:
• Proxy: %s
• Timeout: %.0fs
• Save directory: %s

⚠️ Generation usually takes 30-60 seconds, please be patient`,
		strings.Join(imagegen.ValidAspectRatios, ", "),
		strings.Join(imagegen.ValidResolutions, ", "),
		proxy, info.RequestTimeout.Seconds(), info.SaveDirectory)
}
