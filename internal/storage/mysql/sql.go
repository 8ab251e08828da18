package mysql

const upsertProductSQL = `
INSERT INTO products
  (id, position, kind, name, description, location, currency, base_unit_price, rating,
   schedule, fixed_nights, capacity_min, capacity_max, default_party_size,
   slots, options, attributes, amenities, image)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  position           = VALUES(position),
  kind               = VALUES(kind),
  name               = VALUES(name),
  description        = VALUES(description),
  location           = VALUES(location),
  currency           = VALUES(currency),
  base_unit_price    = VALUES(base_unit_price),
  rating             = VALUES(rating),
  schedule           = VALUES(schedule),
  fixed_nights       = VALUES(fixed_nights),
  capacity_min       = VALUES(capacity_min),
  capacity_max       = VALUES(capacity_max),
  default_party_size = VALUES(default_party_size),
  slots              = VALUES(slots),
  options            = VALUES(options),
  attributes         = VALUES(attributes),
  amenities          = VALUES(amenities),
  image              = VALUES(image),
  updated_at         = CURRENT_TIMESTAMP
`

// reason is overwritten so the latest failure is what operators see
const insertMissSQL = `
INSERT INTO ingest_misses (id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const selectProductCols = `
SELECT
  id, kind, name, description, location, currency, base_unit_price, rating,
  schedule, fixed_nights, capacity_min, capacity_max, default_party_size,
  slots, options, attributes, amenities, image
FROM products
`

const getProductSQL = selectProductCols + `WHERE id = ?`

// Catalog order is the feed's listing order; id breaks ties.
const listProductsSQL = selectProductCols + `ORDER BY position, id`
