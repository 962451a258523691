package model

// JustWatchMultiplier 按可播放平台加权
func JustWatchMultiplier(m Movie) float64 {
	switch {
	case m.Netflix != nil || m.LocalNetflix != nil:
		return 5
	case m.HBO != nil:
		return 4
	case m.ITunes != nil:
		return 3
	case m.Amazon != nil:
		return 2
	default:
		return 0.5
	}
}

// BechdelMultiplier 无评分时按 0 分计
func BechdelMultiplier(m Movie) float64 {
	rating := 0
	if m.Bechdel != nil {
		rating = m.Bechdel.Rating
	}
	return float64(rating) + 0.5
}

// AverageRating Metascore 与 IMDb 评分的平均值（0-10）
func AverageRating(m Movie) float64 {
	return 0.5*(m.Metascore/10) + 0.5*(m.IMDbRating/10)
}

// Priority 计算推荐观看优先级。没有时长（未上映或数据异常）时为 0。
func Priority(m Movie) float64 {
	if m.RunTime == nil || *m.RunTime <= 0 {
		return 0
	}
	return BechdelMultiplier(m) * JustWatchMultiplier(m) * (AverageRating(m) / *m.RunTime * 100)
}

// WithPriority 返回重新计算优先级后的副本
func (m Movie) WithPriority() Movie {
	m.Priority = Priority(m)
	return m
}
