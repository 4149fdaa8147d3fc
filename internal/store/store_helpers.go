package store

import (
	"database/sql"
	"time"
)

const postColumns = "id, folder_id, folder_name, chunk_index, chunk_count, image_count, first_photo_date, work_name, scheduled_date, skip, caption, tags, instagram_posted, instagram_post_id, x_posted, x_post_id, error_log, created_at, updated_at"

func scanPost(scanner interface{ Scan(dest ...any) error }) (*Post, error) {
	var (
		post          Post
		firstPhotoRaw sql.NullString
		scheduled     sql.NullString
		skip          int
		igPosted      int
		xPosted       int
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&post.ID,
		&post.FolderID,
		&post.FolderName,
		&post.ChunkIndex,
		&post.ChunkCount,
		&post.ImageCount,
		&firstPhotoRaw,
		&post.WorkName,
		&scheduled,
		&skip,
		&post.Caption,
		&post.Tags,
		&igPosted,
		&post.InstagramPostID,
		&xPosted,
		&post.XPostID,
		&post.ErrorLog,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	post.FirstPhotoDate = parseTime(firstPhotoRaw.String)
	post.ScheduledDate = scheduled.String
	post.Skip = skip != 0
	post.InstagramPosted = igPosted != 0
	post.XPosted = xPosted != 0
	post.CreatedAt = parseTime(createdRaw)
	post.UpdatedAt = parseTime(updatedRaw)
	return &post, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
