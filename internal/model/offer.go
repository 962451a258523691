package model

// 付费方式
const (
	MonetizationFlatrate = "flatrate"
	MonetizationRent     = "rent"
	MonetizationBuy      = "buy"
)

// 画质
const (
	PresentationHD = "hd"
	PresentationSD = "sd"
)

// 平台名称
const (
	ProviderNetflix = "netflix"
	ProviderAmazon  = "amazon"
	ProviderHBO     = "hbo"
	ProviderITunes  = "itunes"
)

// ViewingOption 单个平台上的一个观看方式（订阅/租赁/购买）
type ViewingOption struct {
	Provider         string   `json:"provider"`
	URL              string   `json:"url"`
	MonetizationType string   `json:"monetizationType"`
	PresentationType string   `json:"presentationType"`
	Price            *float64 `json:"price"`
}

// ViewingOptions 每个平台的最佳观看方式
type ViewingOptions struct {
	Netflix *ViewingOption `json:"netflix"`
	Amazon  *ViewingOption `json:"amazon"`
	HBO     *ViewingOption `json:"hbo"`
	ITunes  *ViewingOption `json:"itunes"`
}

// JustWatchData JustWatch 查询结果
type JustWatchData struct {
	ViewingOptions      ViewingOptions `json:"viewingOptions"`
	RottenTomatoesMeter *int           `json:"rottenTomatoesMeter"`
}

// monetizationRank 订阅 < 租赁 < 购买 < 其他
func monetizationRank(t string) int {
	switch t {
	case MonetizationFlatrate:
		return 0
	case MonetizationRent:
		return 1
	case MonetizationBuy:
		return 2
	default:
		return 3
	}
}

func presentationRank(t string) int {
	if t == PresentationHD {
		return 0
	}
	return 1
}

// Ordinal 排序元组 (付费方式, 画质, 价格)，越小越好
func (o ViewingOption) Ordinal() [3]float64 {
	price := 0.0
	switch o.MonetizationType {
	case MonetizationRent, MonetizationBuy:
		if o.Price != nil {
			price = *o.Price
		}
	}
	return [3]float64{
		float64(monetizationRank(o.MonetizationType)),
		float64(presentationRank(o.PresentationType)),
		price,
	}
}

// Less 按排序元组逐项比较
func (o ViewingOption) Less(other ViewingOption) bool {
	a, b := o.Ordinal(), other.Ordinal()
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
