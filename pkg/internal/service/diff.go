package service

import (
	"context"
	"sort"
	"strings"

	"github.com/yeisme/appvault/pkg/internal/model"
	"github.com/yeisme/appvault/pkg/internal/types"
)

// Diff 比较两个快照：按路径分类 added/removed/modified/unchanged，
// modified 文件附带位置对齐的行级差异. 结果确定性排序.
func (vs *VersionService) Diff(ctx context.Context, appID uint, from, to string) (*types.DiffVersionsResponse, error) {
	a, err := vs.GetByVersion(ctx, appID, from)
	if err != nil {
		return nil, err
	}

	b, err := vs.GetByVersion(ctx, appID, to)
	if err != nil {
		return nil, err
	}

	aFiles, err := vs.snapshotContents(ctx, a)
	if err != nil {
		return nil, err
	}

	bFiles, err := vs.snapshotContents(ctx, b)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(aFiles)+len(bFiles))
	for p := range aFiles {
		paths = append(paths, p)
	}

	for p := range bFiles {
		if _, ok := aFiles[p]; !ok {
			paths = append(paths, p)
		}
	}

	sort.Strings(paths)

	resp := &types.DiffVersionsResponse{From: a.Version, To: b.Version}

	for _, p := range paths {
		before, inA := aFiles[p]
		after, inB := bFiles[p]

		switch {
		case !inA:
			resp.Files = append(resp.Files, types.FileDiff{
				Path:   p,
				Status: "added",
				Lines:  diffLines("", after),
			})
		case !inB:
			resp.Files = append(resp.Files, types.FileDiff{
				Path:   p,
				Status: "removed",
				Lines:  diffLines(before, ""),
			})
		case before == after:
			resp.Files = append(resp.Files, types.FileDiff{Path: p, Status: "unchanged"})
		default:
			resp.Files = append(resp.Files, types.FileDiff{
				Path:   p,
				Status: "modified",
				Lines:  diffLines(before, after),
			})
		}
	}

	return resp, nil
}

// snapshotContents 返回快照中非删除文件的 path → content 映射.
func (vs *VersionService) snapshotContents(ctx context.Context, v *model.AppVersion) (map[string]string, error) {
	contents := make(map[string]string, len(v.Files))

	for _, vf := range v.Files {
		if vf.Action == model.ActionDeleted {
			continue
		}

		data, err := vs.versionFileContent(ctx, &vf)
		if err != nil {
			return nil, err
		}

		contents[vf.Path] = string(data)
	}

	return contents, nil
}

// diffLines 位置对齐的行级差异：逐行比较相同下标，不同即记一删一增，
// 多出的尾部行按侧记增或删. 不做最长公共子序列，结果完全确定.
func diffLines(before, after string) []types.DiffLine {
	aLines := splitLines(before)
	bLines := splitLines(after)

	var out []types.DiffLine

	common := min(len(aLines), len(bLines))

	for i := range common {
		if aLines[i] == bLines[i] {
			out = append(out, types.DiffLine{Type: "unchanged", Line: i + 1, Content: aLines[i]})

			continue
		}

		out = append(out,
			types.DiffLine{Type: "removed", Line: i + 1, Content: aLines[i]},
			types.DiffLine{Type: "added", Line: i + 1, Content: bLines[i]},
		)
	}

	for i := common; i < len(aLines); i++ {
		out = append(out, types.DiffLine{Type: "removed", Line: i + 1, Content: aLines[i]})
	}

	for i := common; i < len(bLines); i++ {
		out = append(out, types.DiffLine{Type: "added", Line: i + 1, Content: bLines[i]})
	}

	return out
}

// splitLines 按行拆分，空串视为零行，尾部换行不产生空行.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}

	s = strings.TrimSuffix(s, "\n")

	return strings.Split(s, "\n")
}
