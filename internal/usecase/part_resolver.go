package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 依頼行の部品指定。id・部品番号・部品名のどれで来てもよい。
type PartIdentifier struct {
	PartID     *int64
	PartNumber string
	PartName   string
}

// 解決器は「この指定を担当するか」「見つかったか」を返す。
// 優先順に並べて最初に見つかったものを採用する（分岐の特例化はしない）。
type partResolver func(ctx context.Context, parts repo.CentralInventoryRepository, in PartIdentifier) (model.CentralInventoryPart, bool, error)

// 優先順:
//  1. id完全一致
//  2. 番号と名前が両方指定されたら両方一致（古いクライアントキャッシュの誤idを防ぐ）
//  3. 番号のみ完全一致
//  4. 名前のみ完全一致
//  5. 名前の部分一致
func partResolverChain() []partResolver {
	return []partResolver{
		resolveByID,
		resolveByNumberAndName,
		resolveByNumber,
		resolveByNameExact,
		resolveByNameSubstring,
	}
}

func resolveByID(ctx context.Context, parts repo.CentralInventoryRepository, in PartIdentifier) (model.CentralInventoryPart, bool, error) {
	if in.PartID == nil || *in.PartID <= 0 {
		return model.CentralInventoryPart{}, false, nil
	}
	p, err := parts.FindByID(ctx, *in.PartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CentralInventoryPart{}, false, nil
	}
	if err != nil {
		return model.CentralInventoryPart{}, false, err
	}
	return p, true, nil
}

func resolveByNumberAndName(ctx context.Context, parts repo.CentralInventoryRepository, in PartIdentifier) (model.CentralInventoryPart, bool, error) {
	if strings.TrimSpace(in.PartNumber) == "" || strings.TrimSpace(in.PartName) == "" {
		return model.CentralInventoryPart{}, false, nil
	}
	p, err := parts.FindByPartNumberAndName(ctx, in.PartNumber, in.PartName)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CentralInventoryPart{}, false, nil
	}
	if err != nil {
		return model.CentralInventoryPart{}, false, err
	}
	return p, true, nil
}

// 番号のみ指定のときだけ番号単独で引く。両方指定は上の両方一致が担当する。
func resolveByNumber(ctx context.Context, parts repo.CentralInventoryRepository, in PartIdentifier) (model.CentralInventoryPart, bool, error) {
	if strings.TrimSpace(in.PartNumber) == "" || strings.TrimSpace(in.PartName) != "" {
		return model.CentralInventoryPart{}, false, nil
	}
	p, err := parts.FindByPartNumber(ctx, in.PartNumber)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CentralInventoryPart{}, false, nil
	}
	if err != nil {
		return model.CentralInventoryPart{}, false, err
	}
	return p, true, nil
}

func resolveByNameExact(ctx context.Context, parts repo.CentralInventoryRepository, in PartIdentifier) (model.CentralInventoryPart, bool, error) {
	if strings.TrimSpace(in.PartName) == "" || strings.TrimSpace(in.PartNumber) != "" {
		return model.CentralInventoryPart{}, false, nil
	}
	p, err := parts.FindByPartName(ctx, in.PartName)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CentralInventoryPart{}, false, nil
	}
	if err != nil {
		return model.CentralInventoryPart{}, false, err
	}
	return p, true, nil
}

func resolveByNameSubstring(ctx context.Context, parts repo.CentralInventoryRepository, in PartIdentifier) (model.CentralInventoryPart, bool, error) {
	if strings.TrimSpace(in.PartName) == "" || strings.TrimSpace(in.PartNumber) != "" {
		return model.CentralInventoryPart{}, false, nil
	}
	p, err := parts.FindByPartNameSubstring(ctx, in.PartName)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CentralInventoryPart{}, false, nil
	}
	if err != nil {
		return model.CentralInventoryPart{}, false, err
	}
	return p, true, nil
}

// 全解決器を順に試し、どれも当たらなければ近似候補付きのエラーを返す。
// 1行でも解決できなければ依頼全体を失敗させる（部分作成はしない）。
func resolvePart(ctx context.Context, parts repo.CentralInventoryRepository, in PartIdentifier) (model.CentralInventoryPart, error) {
	for _, resolve := range partResolverChain() {
		p, ok, err := resolve(ctx, parts, in)
		if err != nil {
			return model.CentralInventoryPart{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if ok {
			return p, nil
		}
	}

	q := strings.TrimSpace(in.PartName)
	if q == "" {
		q = strings.TrimSpace(in.PartNumber)
	}

	msg := fmt.Sprintf("part not found: %s", describeIdentifier(in))
	if q != "" {
		similar, err := parts.SearchSimilar(ctx, q, 5)
		if err == nil && len(similar) > 0 {
			names := make([]string, 0, len(similar))
			for _, s := range similar {
				names = append(names, s.PartName)
			}
			msg = fmt.Sprintf("%s (similar parts: %s)", msg, strings.Join(names, ", "))
		}
	}
	return model.CentralInventoryPart{}, NewHTTPError(http.StatusUnprocessableEntity, msg)
}

func describeIdentifier(in PartIdentifier) string {
	switch {
	case in.PartID != nil && *in.PartID > 0:
		return fmt.Sprintf("id=%d name=%q number=%q", *in.PartID, in.PartName, in.PartNumber)
	case in.PartNumber != "" && in.PartName != "":
		return fmt.Sprintf("name=%q number=%q", in.PartName, in.PartNumber)
	case in.PartNumber != "":
		return fmt.Sprintf("number=%q", in.PartNumber)
	default:
		return fmt.Sprintf("name=%q", in.PartName)
	}
}
