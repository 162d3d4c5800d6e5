package vo

// MediaInfo 元数据解析结果
type MediaInfo struct {
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnail_url"`
	ViewCount       int64  `json:"view_count"`
}
