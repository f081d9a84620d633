/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2026-02-11 10:12:09
 * @LastEditTime: 2026-02-11 10:14:51
 * @LastEditors: 安知鱼
 */
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap 是一个自定义类型，用于处理数据库中的 JSON 字段。
// 它实现了 database/sql/driver.Valuer 和 database/sql.Scanner 接口，
// 可直接作为 gorm 模型的列类型使用。
type JSONMap map[string]string

// Value 实现了 driver.Valuer 接口，用于将 JSONMap 写入数据库。
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现了 sql.Scanner 接口，用于从数据库读取数据到 JSONMap。
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var byteSlice []byte
	switch v := value.(type) {
	case []byte:
		byteSlice = v
	case string:
		byteSlice = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap scan: %T", value)
	}
	return json.Unmarshal(byteSlice, j)
}

// Clone 返回 JSONMap 的浅拷贝，nil 安全
func (j JSONMap) Clone() JSONMap {
	if j == nil {
		return nil
	}
	out := make(JSONMap, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}
