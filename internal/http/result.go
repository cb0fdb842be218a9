package httpapi

// Result 统一响应包装
// - code: 2000 成功，-1 失败
// - type: 'success' | 'error'
// - message: 成功为 "ok"，失败为错误描述
// - result: 业务数据，失败时为 null
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

// List 列表类接口的 result
type List[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

// OkList 包装列表，nil 切片输出为 []
func OkList[T any](items []T) Result[List[T]] {
	if items == nil {
		items = []T{}
	}
	return Ok(List[T]{Items: items, Total: len(items)})
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message}
}
