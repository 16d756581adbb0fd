package service

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
)

// ── 导出模块 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportedFile 生成的下载文件，由 Handler 设置响应头后写出
type ExportedFile struct {
	FileName string
	Data     []byte
}

const rosterSheet = "学生名单"

var rosterHeaders = []string{"序号", "姓名", "邮箱", "电话", "状态", "加入时间", "成绩"}

// renderRosterWorkbook 生成班级花名册
//
// 输出格式：
//   - 第 1 行：标题 "班级名称 (代码) 学生名单"，横跨全部列
//   - 第 2 行：表头
//   - 第 3 行起：每名学生一行，未评分的成绩列留空
func renderRosterWorkbook(class *model.Class, entries []dto.RosterEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(rosterSheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(rosterSheet, "A", "A", 8)
	f.SetColWidth(rosterSheet, "B", "C", 28)
	f.SetColWidth(rosterSheet, "D", "F", 20)
	f.SetColWidth(rosterSheet, "G", "G", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	lastCol := colName(len(rosterHeaders) - 1)
	f.SetCellValue(rosterSheet, "A1", fmt.Sprintf("%s (%s) %s", class.ClassName, class.ClassCode, rosterSheet))
	f.MergeCell(rosterSheet, "A1", cell(lastCol, 1))
	f.SetCellStyle(rosterSheet, "A1", "A1", headerStyle)

	// 表头
	for i, h := range rosterHeaders {
		f.SetCellValue(rosterSheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(rosterSheet, "A2", cell(lastCol, 2), headerStyle)

	// 数据行
	for i, e := range entries {
		row := i + 3
		values := []interface{}{i + 1, e.FullName, e.Email, e.PhoneNumber, e.Status, e.EnrolledAt, ""}
		if e.Grade != nil {
			values[6] = *e.Grade
		}
		for j, v := range values {
			f.SetCellValue(rosterSheet, cell(colName(j), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	return buf.Bytes(), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
