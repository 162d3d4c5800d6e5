package vo

// QualityTier 请求的音频码率档位，取值与表单一致（kbps数字字符串）。
// 档位是建议性的：抓取器可以就近替换可用编码。
type QualityTier string

const (
	QualityLow    QualityTier = "128"
	QualityMedium QualityTier = "192"
	QualityHigh   QualityTier = "320"
)

// IsValid 检查档位是否有效
func (q QualityTier) IsValid() bool {
	switch q {
	case QualityLow, QualityMedium, QualityHigh:
		return true
	default:
		return false
	}
}

// String 返回档位字符串
func (q QualityTier) String() string {
	return string(q)
}

// Bitrate 返回传给ffmpeg的码率参数，如 "192k"
func (q QualityTier) Bitrate() string {
	return string(q) + "k"
}

// Label 返回文件名里使用的档位标记，如 "192kbps"
func (q QualityTier) Label() string {
	return string(q) + "kbps"
}
